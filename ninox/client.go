package ninox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/panafact/fepa_backend/config"
	"github.com/panafact/fepa_backend/utils"
)

// Client talks to one hosted table-API account.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	http     *http.Client
}

func NewClient(account config.NinoxAccount) (*Client, error) {
	if strings.TrimSpace(account.Token) == "" {
		return nil, errors.New("ninox api token is empty")
	}
	return &Client{
		baseURL:  strings.TrimRight(account.BaseURL, "/"),
		token:    account.Token,
		pageSize: config.NinoxPageSize(),
		http:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *Client) fetchPage(ctx context.Context, table string, limit int, offset int) ([]Record, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	endpoint := c.baseURL + "/tables/" + url.PathEscape(table) + "/records?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("table api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var records []Record
	if err := utils.UnmarshalFromJSON(body, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FetchTable pulls every record of a table with offset pagination. A batch
// shorter than the page size terminates the walk; there is no total-count
// endpoint to trust. On a failed page the records accumulated so far are
// returned alongside the error, the caller decides whether a partial catalog
// is still usable.
func (c *Client) FetchTable(ctx context.Context, table string) ([]Record, error) {
	var all []Record
	offset := 0
	for {
		batch, err := c.fetchPage(ctx, table, c.pageSize, offset)
		if err != nil {
			return all, err
		}
		all = append(all, batch...)
		if len(batch) < c.pageSize {
			return all, nil
		}
		offset += c.pageSize
	}
}

// FetchTableAliases probes table names in order and returns the records of the
// first alias that yields any. The hosted store renames tables freely
// ("Lineas de Factura" vs "LineasFactura"), so callers pass every spelling
// they have seen. Probe errors are collected but only surfaced when every
// alias comes back empty.
func (c *Client) FetchTableAliases(ctx context.Context, aliases ...string) ([]Record, error) {
	var lastErr error
	for _, alias := range aliases {
		records, err := c.FetchTable(ctx, alias)
		if len(records) > 0 {
			// A non-nil err here means the walk died mid-pagination; the
			// partial batch is returned but the error must travel with it.
			return records, err
		}
		if err != nil {
			lastErr = err
		}
	}
	return nil, lastErr
}
