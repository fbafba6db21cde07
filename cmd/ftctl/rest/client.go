// Package rest is a client of the fairtraced REST API.
package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	apijobs "github.com/fairtrace/fairtrace/pkg/api/types/jobs"
	apiledger "github.com/fairtrace/fairtrace/pkg/api/types/ledger"
	"github.com/fairtrace/fairtrace/pkg/auth"
	"github.com/fairtrace/fairtrace/pkg/utils"
)

// ErrProfileInvalid is returned when a Profile lacks required values.
var ErrProfileInvalid = errors.New("profile is invalid")

// Profile tells where and as whom the client requests.
type Profile struct {
	// ApiRoot is the url of fairtraced, like "https://fairtrace.example.com/api".
	ApiRoot string

	// Token is a bearer token issued for the operator.
	Token string

	// ActAs is the node to act for. Effective for the platform role only.
	ActAs string

	// CA is a path to PEM encoded certificates to be trusted additionally.
	CA string
}

func (p Profile) Verify() error {
	if p.ApiRoot == "" {
		return fmt.Errorf("%w: api root is empty", ErrProfileInvalid)
	}
	if _, err := url.Parse(p.ApiRoot); err != nil {
		return fmt.Errorf("%w: api root: %w", ErrProfileInvalid, err)
	}
	if p.Token == "" {
		return fmt.Errorf("%w: token is empty", ErrProfileInvalid)
	}
	return nil
}

type FairtraceClient interface {
	// Trace batches from batchId.
	//
	// direction is "up" or "down". depth 0 traces to the end.
	Trace(ctx context.Context, batchId string, direction string, depth int) (apiledger.Trace, error)

	// Origins tells sources of the batch and their shares.
	Origins(ctx context.Context, batchId string) (apiledger.Origins, error)

	// CommitUpload records rows of the sheet.
	//
	// When the sheet has errors, it returns *UploadError.
	CommitUpload(ctx context.Context, kind string, supplyChainId string, filename string, content io.Reader) (apijobs.Upload, error)

	RequestReport(ctx context.Context, spec apijobs.ReportSpec) (apijobs.Report, error)
	GetReport(ctx context.Context, reportId string) (apijobs.Report, error)

	// GetReportFile downloads the generated spreadsheet and passes it to handler.
	GetReportFile(ctx context.Context, reportId string, handler func(io.Reader) error) error
}

// UploadError is the rejection of an upload because of row errors.
type UploadError struct {
	apijobs.UploadFailure
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s (%d errors)", e.Reason, len(e.Validation.Errors))
}

type client struct {
	httpclient *http.Client
	api        string
	token      string
	actAs      string
}

// NewClient creates a client for the profile.
//
// When the profile is invalid, it returns ErrProfileInvalid.
func NewClient(prof Profile) (FairtraceClient, error) {
	if err := prof.Verify(); err != nil {
		return nil, err
	}
	httpclient := new(http.Client)
	if prof.CA != "" {
		pem, err := os.ReadFile(prof.CA)
		if err != nil {
			return nil, err
		}
		hc, err := trustCa(httpclient, pem)
		if err != nil {
			return nil, err
		}
		httpclient = hc
	}

	return &client{
		httpclient: httpclient,
		api:        strings.TrimSuffix(prof.ApiRoot, "/"),
		token:      prof.Token,
		actAs:      prof.ActAs,
	}, nil
}

// build URL with path. It ends with "/" as routes of fairtraced do.
func (c *client) apipath(path ...string) string {
	path = utils.Map(path, func(p string) string {
		return url.PathEscape(strings.Trim(p, "/"))
	})
	return strings.Join(append([]string{c.api}, path...), "/") + "/"
}

func (c *client) do(ctx context.Context, method string, target string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.actAs != "" {
		req.Header.Set(auth.ActAsHeader, c.actAs)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpclient.Do(req)
}

func (c *client) Trace(ctx context.Context, batchId string, direction string, depth int) (apiledger.Trace, error) {
	q := url.Values{}
	if direction != "" {
		q.Set("direction", direction)
	}
	q.Set("depth", strconv.Itoa(depth))

	resp, err := c.do(ctx, http.MethodGet, c.apipath("batches", batchId, "trace")+"?"+q.Encode(), nil, "")
	if err != nil {
		return apiledger.Trace{}, err
	}
	defer resp.Body.Close()

	trace := apiledger.Trace{}
	if err := unmarshalJsonResponse(resp, &trace, MessageFor{
		Status4xx: fmt.Sprintf("cannot trace batch %s", batchId),
		Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
	}); err != nil {
		return apiledger.Trace{}, err
	}
	return trace, nil
}

func (c *client) Origins(ctx context.Context, batchId string) (apiledger.Origins, error) {
	resp, err := c.do(ctx, http.MethodGet, c.apipath("batches", batchId, "origins"), nil, "")
	if err != nil {
		return apiledger.Origins{}, err
	}
	defer resp.Body.Close()

	origins := apiledger.Origins{}
	if err := unmarshalJsonResponse(resp, &origins, MessageFor{
		Status4xx: fmt.Sprintf("cannot tell origins of batch %s", batchId),
		Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
	}); err != nil {
		return apiledger.Origins{}, err
	}
	return origins, nil
}

func (c *client) CommitUpload(
	ctx context.Context, kind string, supplyChainId string, filename string, content io.Reader,
) (apijobs.Upload, error) {
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return apijobs.Upload{}, err
	}
	if _, err := io.Copy(fw, content); err != nil {
		return apijobs.Upload{}, err
	}
	if err := mw.Close(); err != nil {
		return apijobs.Upload{}, err
	}

	q := url.Values{}
	q.Set("kind", kind)
	q.Set("supply_chain", supplyChainId)
	resp, err := c.do(ctx, http.MethodPost, c.apipath("uploads")+"?"+q.Encode(), buf, mw.FormDataContentType())
	if err != nil {
		return apijobs.Upload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return apijobs.Upload{}, err
		}
		failure := apijobs.UploadFailure{}
		if err := json.Unmarshal(body, &failure); err == nil && len(failure.Validation.Errors) != 0 {
			return apijobs.Upload{}, &UploadError{UploadFailure: failure}
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}

	u := apijobs.Upload{}
	if err := unmarshalJsonResponse(resp, &u, MessageFor{
		Status4xx: "upload is rejected",
		Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
	}); err != nil {
		return apijobs.Upload{}, err
	}
	return u, nil
}

func (c *client) RequestReport(ctx context.Context, spec apijobs.ReportSpec) (apijobs.Report, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return apijobs.Report{}, err
	}
	resp, err := c.do(ctx, http.MethodPost, c.apipath("reports"), bytes.NewReader(body), "application/json")
	if err != nil {
		return apijobs.Report{}, err
	}
	defer resp.Body.Close()

	r := apijobs.Report{}
	if err := unmarshalJsonResponse(resp, &r, MessageFor{
		Status4xx: "report request is rejected",
		Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
	}); err != nil {
		return apijobs.Report{}, err
	}
	return r, nil
}

func (c *client) GetReport(ctx context.Context, reportId string) (apijobs.Report, error) {
	resp, err := c.do(ctx, http.MethodGet, c.apipath("reports", reportId), nil, "")
	if err != nil {
		return apijobs.Report{}, err
	}
	defer resp.Body.Close()

	r := apijobs.Report{}
	if err := unmarshalJsonResponse(resp, &r, MessageFor{
		Status4xx: fmt.Sprintf("report %s is not found", reportId),
		Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
	}); err != nil {
		return apijobs.Report{}, err
	}
	return r, nil
}

func (c *client) GetReportFile(ctx context.Context, reportId string, handler func(io.Reader) error) error {
	resp, err := c.do(ctx, http.MethodGet, c.apipath("reports", reportId, "file"), nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := streamResponse(resp, MessageFor{
		Status4xx: fmt.Sprintf("report %s cannot be downloaded", reportId),
		Status5xx: fmt.Sprintf("server error (status code = %d)", resp.StatusCode),
	})
	if err != nil {
		return err
	}
	return handler(body)
}

func trustCa(hc *http.Client, pem []byte) (*http.Client, error) {
	if hc.Transport == nil {
		hc.Transport = http.DefaultTransport
	}
	tran, ok := hc.Transport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("failed to add ca cert")
	}
	tran = tran.Clone()

	tcc := tran.TLSClientConfig.Clone()
	if tcc == nil {
		tcc = &tls.Config{}
	}
	rootcas := tcc.RootCAs
	if rootcas == nil {
		if sys, err := x509.SystemCertPool(); err == nil {
			rootcas = sys
		} else {
			rootcas = x509.NewCertPool()
		}
		tcc.RootCAs = rootcas
	}
	if !rootcas.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to add cert: no certificates in PEM")
	}

	tran.TLSClientConfig = tcc
	hc.Transport = tran
	return hc, nil
}
