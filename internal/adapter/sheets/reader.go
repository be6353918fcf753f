package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"quiz-export/internal/config"
	"quiz-export/internal/domain"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var (
	pathIDPattern  = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	bareIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)
	errMissingID   = errors.New("spreadsheet identifier is empty")
	errUnsupported = errors.New("spreadsheet identifier is neither a sheet URL nor an ID")
)

// SpreadsheetID resolves a spreadsheet URL or a bare ID to the ID used by
// the Sheets API. Both the /spreadsheets/d/<id>/ form and the legacy ?key=<id>
// form are accepted.
func SpreadsheetID(identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", errMissingID
	}
	if m := pathIDPattern.FindStringSubmatch(identifier); m != nil {
		return m[1], nil
	}
	if u, err := url.Parse(identifier); err == nil && u.Host != "" {
		if key := u.Query().Get("key"); key != "" {
			return key, nil
		}
		return "", errUnsupported
	}
	if bareIDPattern.MatchString(identifier) {
		return identifier, nil
	}
	return "", errUnsupported
}

// Reader reads worksheet values through the Sheets API v4 with an API key,
// so only link-shared spreadsheets are reachable.
type Reader struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewReader creates a Reader. A nil logger disables logging.
func NewReader(cfg config.SheetsConfig, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultSheetsBaseURL
	}
	return &Reader{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// ReadWorksheet implements domain.SheetReader. The first returned row of the
// range is the header; the rest are data rows.
func (r *Reader) ReadWorksheet(ctx context.Context, identifier, worksheet string) (*domain.SheetValues, error) {
	id, err := SpreadsheetID(identifier)
	if err != nil {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("Invalid spreadsheet identifier: %v", err))
	}
	worksheet = strings.TrimSpace(worksheet)
	if worksheet == "" {
		return nil, domain.NewInvalidInputError("Worksheet name is required")
	}

	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?key=%s",
		r.baseURL, url.PathEscape(id), url.PathEscape(worksheet), url.QueryEscape(r.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.NewInternalError("Failed to build sheets request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.NewSheetUnavailableError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewSheetUnavailableError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("sheets API returned status %d: %s", resp.StatusCode, apiMessage(body))
		r.logger.Warn("Sheets API request failed",
			zap.String("spreadsheet_id", id),
			zap.String("worksheet", worksheet),
			zap.Int("status", resp.StatusCode),
		)
		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusBadRequest, http.StatusForbidden:
			return nil, domain.NewSheetNotFoundError(worksheet, apiErr)
		default:
			return nil, domain.NewSheetUnavailableError(apiErr)
		}
	}

	if !gjson.ValidBytes(body) {
		return nil, domain.NewSheetUnavailableError(errors.New("sheets API returned invalid JSON"))
	}
	values := parseValues(body)
	r.logger.Debug("Worksheet read",
		zap.String("spreadsheet_id", id),
		zap.String("worksheet", worksheet),
		zap.Int("rows", len(values.Rows)),
	)
	return values, nil
}

// parseValues splits the "values" grid into header and rows. A worksheet with
// no data yields an empty header.
func parseValues(body []byte) *domain.SheetValues {
	out := &domain.SheetValues{}
	grid := gjson.GetBytes(body, "values").Array()
	for i, row := range grid {
		cells := make([]string, 0, len(row.Array()))
		for _, cell := range row.Array() {
			cells = append(cells, cell.String())
		}
		if i == 0 {
			out.Header = cells
			continue
		}
		out.Rows = append(out.Rows, domain.RawRow(cells))
	}
	return out
}

func apiMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

var _ domain.SheetReader = (*Reader)(nil)
