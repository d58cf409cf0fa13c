package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guda "github.com/LynnColeArt/gudascan"
	"github.com/LynnColeArt/gudascan/scan"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e, _ := newTestServer(t)
	return e
}

func newTestServer(t *testing.T) (*echo.Echo, *guda.Context) {
	t.Helper()
	ctx := guda.NewContext(guda.DefaultDevice(), guda.WithFatalHandler(nil))
	t.Cleanup(func() { _ = ctx.Destroy() })

	cfg := scan.DefaultConfig()
	cfg.GroupSize = 8
	cfg.NumGroups = 4
	cfg.LockstepWidth = 4
	e := echo.New()
	NewServer(ctx, cfg, nil).Register(e)
	return e, ctx
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestScan(t *testing.T) {
	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/scan", `{"input":[1,2,3,4],"verify":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.ID, "scan_"), resp.ID)
	assert.Equal(t, []int32{11, 23, 36, 50}, resp.Output)
	assert.Equal(t, 4, resp.Length)
	assert.Equal(t, "[11i32, 23i32, 36i32, 50i32]", resp.Literal)
	assert.Equal(t, 32, resp.Geometry.NumThreads)
	assert.Equal(t, 1, resp.Geometry.ElemsPerThread)
	require.NotNil(t, resp.Verified)
	assert.True(t, *resp.Verified)
}

func TestScanOverrides(t *testing.T) {
	e := newTestEcho(t)
	input := make([]int32, 1000)
	for i := range input {
		input[i] = int32(i % 7)
	}
	body, err := json.Marshal(map[string]any{
		"input":          input,
		"group_size":     16,
		"num_groups":     3,
		"lockstep_width": 1,
		"addend":         -1,
	})
	require.NoError(t, err)

	rec := doJSON(t, e, http.MethodPost, "/v1/scan", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, scan.Reference(input, -1), resp.Output)
	assert.Equal(t, 48, resp.Geometry.NumThreads)
	assert.Equal(t, 1, resp.Geometry.Lockstep)
}

func TestScanEmpty(t *testing.T) {
	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/scan", `{"input":[]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"literal":"empty(i32)"`)
	assert.Contains(t, rec.Body.String(), `"length":0`)
}

func TestScanBadRequests(t *testing.T) {
	e := newTestEcho(t)
	for name, body := range map[string]string{
		"invalid json":        `{"input":[1,2`,
		"non integer element": `{"input":["a"]}`,
		"zero group size":     `{"input":[1],"group_size":0}`,
		"oversized group":     `{"input":[1],"group_size":4096}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/v1/scan", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), "invalid_request_error")
		})
	}
}

func TestDevices(t *testing.T) {
	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodGet, "/v1/devices", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []DeviceInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, len(guda.ListDevices()))
	assert.True(t, resp.Data[0].Active)
	assert.Equal(t, guda.NvidiaLockstepWidth, resp.Data[1].LockstepWidth)
	assert.Equal(t, guda.AMDLockstepWidth, resp.Data[2].LockstepWidth)
	assert.Equal(t, "4.0 GiB", resp.Data[0].Memory)
	assert.Equal(t, "48 KiB", resp.Data[1].LocalMemory)
}

// crash panics in its first work-item.
type crash struct{}

func (crash) Name() string { return "crash" }
func (crash) Buffers() []*guda.Buffer { return nil }
func (k crash) Bind([]*guda.Buffer) guda.Kernel { return k }
func (crash) Execute(wi *guda.WorkItem) {
	if wi.GlobalID(0) == 0 {
		panic("boom")
	}
}

func TestScanAfterDeviceFailure(t *testing.T) {
	e, ctx := newTestServer(t)
	q := ctx.Queue()
	require.NoError(t, q.Launch(crash{}, guda.Dim3{X: 8}, guda.Dim3{X: 8}, 0))
	require.Error(t, q.Finish())

	rec := doJSON(t, e, http.MethodPost, "/v1/scan", `{"input":[1,2,3,4]}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"device_error"`)
	assert.Contains(t, rec.Body.String(), "crash")

	rec = doJSON(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newTestEcho(t)
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
