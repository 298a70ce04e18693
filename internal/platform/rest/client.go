// Package rest implements the platform.Adapter contract against boards
// that expose a token-authenticated JSON API.
package rest

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/autovagas/autovagas/internal/platform"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip, deflate, br"
	defaultTimeout  = 10 * time.Second
	// Max page size most boards accept.
	defaultPerPage = "100"

	searchPath       = "/jobs"
	applicationsPath = "/applications"
	mePath           = "/me"
)

type Adapter struct {
	name   string
	token  string
	logger *zap.Logger

	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New creates an adapter for one board rooted at apiURL.
func New(name, apiURL, userAgent string, logger *zap.Logger) *Adapter {
	return &Adapter{
		name:   name,
		logger: logger,
		APIURL: strings.TrimRight(apiURL, "/"),
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		UserAgent: userAgent,
	}
}

func (a *Adapter) Platform() string { return a.name }

// Login verifies the credential against the board's identity endpoint and
// keeps the token for subsequent calls.
func (a *Adapter) Login(ctx context.Context, cred *platform.Credential) error {
	if cred == nil || strings.TrimSpace(cred.AccessToken) == "" {
		return &platform.AuthError{
			Platform: a.name,
			Err:      fmt.Errorf("access token is required"),
		}
	}

	a.token = cred.AccessToken

	apiURLMe := fmt.Sprintf("%s%s", a.APIURL, mePath)
	if err := a.getJSON(ctx, apiURLMe, nil, nil); err != nil {
		a.token = ""
		if platform.IsAuthError(err) {
			return err
		}
		return &platform.AuthError{Platform: a.name, Err: err}
	}

	return nil
}

type ItemResponse struct {
	Items   []Item
	Found   int
	Pages   int
	Page    int
	PerPage int `json:"per_page"`
}

type Item interface{}

// GetItems performs a GET and follows pagination, returning items from
// every page.
func (a *Adapter) GetItems(ctx context.Context, rawURL string, q url.Values) ([]Item, error) {
	var items []Item

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	a.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	req.URL.RawQuery = q.Encode()

	response, err := a.getItemPage(req)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("got search response",
		zap.String("platform", a.name),
		zap.Int("pages", response.Pages),
		zap.Int("per_page", response.PerPage),
	)

	items = append(items, response.Items...)

	for response.Page < (response.Pages - 1) {
		response, err = a.getItemPage(addPage(req, response.Page+1))
		if err != nil {
			return nil, err
		}

		items = append(items, response.Items...)
	}

	return items, nil
}

func (a *Adapter) getItemPage(req *http.Request) (*ItemResponse, error) {
	resp, err := a.request(req)
	if err != nil {
		return nil, err
	}

	return a.parseItemResponse(resp)
}

func (a *Adapter) parseItemResponse(resp *http.Response) (*ItemResponse, error) {
	if err := a.checkStatus(resp, http.StatusOK); err != nil {
		resp.Body.Close()
		return nil, err
	}

	var body io.ReadCloser
	var err error
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		body, err = gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		defer body.Close()
	default:
		body = resp.Body
		defer body.Close()
	}

	var response *ItemResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, err
	}

	return response, nil
}

func (a *Adapter) postFormData(ctx context.Context, rawURL string, data map[string]string) (map[string]any, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	for key, val := range data {
		field, err := w.CreateFormField(key)
		if err != nil {
			return nil, err
		}

		if _, err = io.Copy(field, strings.NewReader(val)); err != nil {
			return nil, err
		}
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, &b)
	if err != nil {
		return nil, err
	}

	a.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := a.request(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := a.checkStatus(resp, http.StatusCreated); err != nil {
		return nil, err
	}

	var created map[string]any
	// Some boards return an empty body on create.
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil && err != io.EOF {
		return nil, err
	}

	return created, nil
}

func (a *Adapter) getJSON(ctx context.Context, rawURL string, q url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	a.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	resp, err := a.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := a.checkStatus(resp, http.StatusOK); err != nil {
		return err
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	if target == nil {
		return nil
	}

	return json.NewDecoder(reader).Decode(target)
}

func (a *Adapter) request(req *http.Request) (*http.Response, error) {
	a.logger.Debug("make request",
		zap.String("platform", a.name),
		zap.String("url", req.URL.String()),
	)

	return a.HTTPClient.Do(req)
}

// checkStatus converts 401/403 into platform.AuthError so the session
// manager can flag the platform for re-login.
func (a *Adapter) checkStatus(resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &platform.AuthError{
			Platform: a.name,
			Err:      fmt.Errorf("bad status: %s", resp.Status),
		}
	}

	return fmt.Errorf("bad status: %s", resp.Status)
}

func (a *Adapter) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.token))
	req.Header.Set("User-Agent", a.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
}

// addPage sets the page query parameter on the request URL.
func addPage(req *http.Request, page int) *http.Request {
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()

	return req
}
