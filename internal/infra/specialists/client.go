// Package specialists fetches nearby veterinary specialists from the
// directory service.
package specialists

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

const DefaultTimeout = 3 * time.Second

// Client implements domain.SpecialistFinder over
// GET {base}/specialists?species=&disease=&limit=.
type Client struct {
	base string
	http *http.Client
}

var _ domain.SpecialistFinder = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if baseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid specialists base URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{base: baseURL, http: &http.Client{Timeout: timeout}}, nil
}

type specialistDTO struct {
	ID      json.RawMessage `json:"id"`
	Name    string          `json:"name"`
	Address string          `json:"address"`
	Phone   string          `json:"phone"`
}

func (c *Client) Suggest(ctx context.Context, q domain.SpecialistQuery) ([]domain.Specialist, error) {
	v := url.Values{}
	v.Set("species", q.Species)
	if q.DiseaseKey != "" && q.DiseaseKey != domain.HealthyKey {
		v.Set("disease", q.DiseaseKey)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/specialists?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if q.OwnerID != "" {
		req.Header.Set("X-Owner-ID", q.OwnerID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("specialists request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("specialists read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("specialists: unexpected status %s", resp.Status)
	}

	dtos, err := decodeList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Specialist, 0, len(dtos))
	for _, d := range dtos {
		if strings.TrimSpace(d.Name) == "" {
			continue
		}
		out = append(out, domain.Specialist{ID: rawID(d.ID), Name: d.Name, Address: d.Address, Phone: d.Phone})
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// decodeList accepts a bare array or a {"data": [...]} envelope.
func decodeList(raw []byte) ([]specialistDTO, error) {
	var list []specialistDTO
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var env struct {
		Data *[]specialistDTO `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("specialists decode: %w", err)
	}
	if env.Data == nil {
		return nil, errors.New("specialists decode: no data field")
	}
	return *env.Data, nil
}

// rawID accepts numeric or string ids.
func rawID(m json.RawMessage) string {
	if len(m) == 0 || string(m) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return s
	}
	return string(m)
}
