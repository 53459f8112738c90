package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/menu-lens/internal/menu"
	"github.com/ironsheep/menu-lens/internal/ocr"
	"github.com/ironsheep/menu-lens/internal/region"
	"github.com/ironsheep/menu-lens/internal/session"
)

func menuPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{240, 230, 210, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func annotation(text string, verts ...region.RawVertex) region.RawAnnotation {
	return region.RawAnnotation{Description: text, BoundingPoly: &region.RawPoly{Vertices: verts}}
}

func menuResponse() *region.RawResponse {
	return &region.RawResponse{Responses: []region.RawImageResponse{{
		TextAnnotations: []region.RawAnnotation{
			annotation("ラーメン\n餃子\n", region.Vertex(0, 0), region.Vertex(200, 0), region.Vertex(200, 100), region.Vertex(0, 100)),
			annotation("ラーメン", region.Vertex(10, 10), region.Vertex(50, 10), region.Vertex(50, 30), region.Vertex(10, 30)),
			annotation("餃子", region.Vertex(0, 40), region.Vertex(30, 40), region.Vertex(30, 60), region.Vertex(0, 60)),
		},
	}}}
}

func fixed(resp *region.RawResponse) ocr.Recognizer {
	return ocr.RecognizerFunc(func(ctx context.Context, _ []byte) (*region.RawResponse, error) {
		return resp, nil
	})
}

type testAPI struct {
	t        *testing.T
	handler  http.Handler
	sessions *session.Registry
}

func newTestAPI(t *testing.T, rec ocr.Recognizer, maxUpload int64) *testAPI {
	t.Helper()
	m := menu.New(map[string]string{"ラーメン": "Noodle soup in broth"})
	reg := session.NewRegistry(session.Options{Recognizer: rec, Menu: m}, 8)
	api := New(Options{
		Sessions:       reg,
		Recognizer:     rec,
		Menu:           m,
		MaxUploadBytes: maxUpload,
	})
	return &testAPI{t: t, handler: api.Handler(), sessions: reg}
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(data))
		r.Header.Set("Content-Type", "application/json")
	}
	return a.do(r)
}

// envelope decodes an APIResponse, with Data decoded into data when non-nil.
func envelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	var raw struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.APIResponse
}

func (a *testAPI) createSession() string {
	a.t.Helper()
	rec := a.request("POST", "/api/sessions", nil)
	require.Equal(a.t, http.StatusCreated, rec.Code)
	var sum session.Summary
	envelope(a.t, rec, &sum)
	require.NotEmpty(a.t, sum.ID)
	return sum.ID
}

func (a *testAPI) uploadedSession() string {
	a.t.Helper()
	id := a.createSession()
	rec := a.request("POST", "/api/sessions/"+id+"/image", map[string]string{
		"image": base64.StdEncoding.EncodeToString(menuPNG(a.t, 200, 100)),
	})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	return id
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t, fixed(menuResponse()), 0)
	a.createSession()

	rec := a.request("GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	resp := envelope(t, rec, &body)
	assert.True(t, resp.Success)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["sessions"])
	assert.Equal(t, float64(1), body["menu"])
}

func TestVisionOCR(t *testing.T) {
	var got []byte
	rec := ocr.RecognizerFunc(func(ctx context.Context, data []byte) (*region.RawResponse, error) {
		got = data
		return menuResponse(), nil
	})
	a := newTestAPI(t, rec, 0)

	t.Run("plain base64", func(t *testing.T) {
		res := a.request("POST", "/api/vision-ocr", map[string]string{"image": base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))})
		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, []byte("jpeg-bytes"), got)

		var raw region.RawResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &raw))
		require.Len(t, raw.Annotations(), 3)
		assert.Equal(t, "ラーメン", raw.Annotations()[1].Description)
	})

	t.Run("data URL", func(t *testing.T) {
		res := a.request("POST", "/api/vision-ocr", map[string]string{
			"image": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("abc")),
		})
		require.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, []byte("abc"), got)
	})

	t.Run("missing image", func(t *testing.T) {
		res := a.request("POST", "/api/vision-ocr", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, res.Code)
		resp := envelope(t, res, nil)
		assert.False(t, resp.Success)
		assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
	})
}

func TestVisionOCR_RecognizerFailure(t *testing.T) {
	failing := ocr.RecognizerFunc(func(ctx context.Context, _ []byte) (*region.RawResponse, error) {
		return nil, errors.Join(ocr.ErrRecognition, errors.New("quota exceeded"))
	})
	a := newTestAPI(t, failing, 0)

	res := a.request("POST", "/api/vision-ocr", map[string]string{"image": base64.StdEncoding.EncodeToString([]byte("x"))})
	assert.Equal(t, http.StatusBadGateway, res.Code)
	resp := envelope(t, res, nil)
	assert.Equal(t, "RECOGNITION_FAILED", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "quota exceeded")
}

func TestSessionLifecycle(t *testing.T) {
	a := newTestAPI(t, fixed(menuResponse()), 0)
	id := a.createSession()

	rec := a.request("GET", "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum session.Summary
	envelope(t, rec, &sum)
	assert.Equal(t, id, sum.ID)
	assert.Empty(t, sum.Regions)
	assert.Equal(t, "natural", sum.Strategy)

	rec = a.request("DELETE", "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.request("GET", "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.request("GET", "/api/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.request("DELETE", "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadImage_Encodings(t *testing.T) {
	img := menuPNG(t, 200, 100)

	tests := []struct {
		name  string
		build func(t *testing.T, url string) *http.Request
	}{
		{
			"json",
			func(t *testing.T, url string) *http.Request {
				body, _ := json.Marshal(map[string]string{"image": base64.StdEncoding.EncodeToString(img)})
				r := httptest.NewRequest("POST", url, bytes.NewReader(body))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
		},
		{
			"multipart",
			func(t *testing.T, url string) *http.Request {
				var buf bytes.Buffer
				mw := multipart.NewWriter(&buf)
				fw, err := mw.CreateFormFile("image", "menu.png")
				require.NoError(t, err)
				_, err = fw.Write(img)
				require.NoError(t, err)
				require.NoError(t, mw.Close())
				r := httptest.NewRequest("POST", url, &buf)
				r.Header.Set("Content-Type", mw.FormDataContentType())
				return r
			},
		},
		{
			"raw bytes",
			func(t *testing.T, url string) *http.Request {
				r := httptest.NewRequest("POST", url, bytes.NewReader(img))
				r.Header.Set("Content-Type", "image/png")
				return r
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t, fixed(menuResponse()), 0)
			id := a.createSession()

			rec := a.do(tt.build(t, "/api/sessions/"+id+"/image"))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var out uploadResponse
			envelope(t, rec, &out)
			assert.False(t, out.State.Loading)
			require.Len(t, out.State.Regions, 2)
			assert.Equal(t, "ラーメン", out.State.Regions[0].Text)
			require.Len(t, out.HitTargets, 2)
			assert.Equal(t, 10.0, out.HitTargets[0].Rect.Left)
			assert.Equal(t, 40.0, out.HitTargets[0].Rect.Width)
			assert.Equal(t, 200, out.State.Image.Width)
		})
	}
}

func TestUploadImage_Errors(t *testing.T) {
	t.Run("not an image", func(t *testing.T) {
		a := newTestAPI(t, fixed(menuResponse()), 0)
		id := a.createSession()
		rec := a.do(httptest.NewRequest("POST", "/api/sessions/"+id+"/image", strings.NewReader("plain text")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		a := newTestAPI(t, fixed(menuResponse()), 0)
		id := a.createSession()
		rec := a.do(httptest.NewRequest("POST", "/api/sessions/"+id+"/image", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		a := newTestAPI(t, fixed(menuResponse()), 64)
		id := a.createSession()
		rec := a.do(httptest.NewRequest("POST", "/api/sessions/"+id+"/image", bytes.NewReader(menuPNG(t, 200, 100))))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		resp := envelope(t, rec, nil)
		assert.Equal(t, "REQUEST_TOO_LARGE", resp.Error.Code)
	})

	t.Run("recognizer failure keeps notice", func(t *testing.T) {
		failing := ocr.RecognizerFunc(func(ctx context.Context, _ []byte) (*region.RawResponse, error) {
			return nil, errors.Join(ocr.ErrRecognition, errors.New("boom"))
		})
		a := newTestAPI(t, failing, 0)
		id := a.createSession()
		rec := a.do(httptest.NewRequest("POST", "/api/sessions/"+id+"/image", bytes.NewReader(menuPNG(t, 20, 20))))
		assert.Equal(t, http.StatusBadGateway, rec.Code)

		rec = a.request("GET", "/api/sessions/"+id, nil)
		var sum session.Summary
		envelope(t, rec, &sum)
		assert.False(t, sum.Loading)
		assert.NotEmpty(t, sum.Notice)
		assert.Empty(t, sum.Regions)
	})

	t.Run("unknown session", func(t *testing.T) {
		a := newTestAPI(t, fixed(menuResponse()), 0)
		rec := a.do(httptest.NewRequest("POST", "/api/sessions/6f1c2a1e-9c1e-4d1e-8f0a-0b7c6d5e4f3a/image", bytes.NewReader(menuPNG(t, 20, 20))))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestFrameAndTargets(t *testing.T) {
	a := newTestAPI(t, fixed(menuResponse()), 0)
	id := a.uploadedSession()

	rec := a.request("PUT", "/api/sessions/"+id+"/frame", map[string]float64{"rendered_width": 100, "rendered_height": 50})
	require.Equal(t, http.StatusOK, rec.Code)
	var sum session.Summary
	envelope(t, rec, &sum)
	assert.Equal(t, 0.5, sum.Scale.X)

	rec = a.request("PUT", "/api/sessions/"+id+"/frame", map[string]float64{"rendered_width": 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.request("PUT", "/api/sessions/"+id+"/frame", map[string]float64{"rendered_width": -1, "rendered_height": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Natural-pixel targets ignore the rendered size.
	rec = a.request("GET", "/api/sessions/"+id+"/targets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Strategy   string `json:"strategy"`
		HitTargets []struct {
			Key  int
			Text string
			Rect struct{ Left, Top, Width, Height float64 }
		} `json:"hit_targets"`
	}
	envelope(t, rec, &out)
	assert.Equal(t, "natural", out.Strategy)
	require.Len(t, out.HitTargets, 2)
	assert.Equal(t, 10.0, out.HitTargets[0].Rect.Left)

	rec = a.request("GET", "/api/sessions/"+id+"/targets?zoom=2&offset_x=5&offset_y=-5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &out)
	assert.Equal(t, 25.0, out.HitTargets[0].Rect.Left)
	assert.Equal(t, 15.0, out.HitTargets[0].Rect.Top)
	assert.Equal(t, 80.0, out.HitTargets[0].Rect.Width)

	rec = a.request("GET", "/api/sessions/"+id+"/targets?zoom=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTargets_NonFiniteTransform(t *testing.T) {
	a := newTestAPI(t, fixed(menuResponse()), 0)
	id := a.uploadedSession()
	base := "/api/sessions/" + id

	for _, q := range []string{"zoom=NaN", "zoom=Inf", "zoom=1&offset_x=-Inf", "zoom=1&offset_y=NaN", "zoom=1e308"} {
		rec := a.request("GET", base+"/targets?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		resp := envelope(t, rec, nil)
		assert.False(t, resp.Success, q)
		require.NotNil(t, resp.Error, q)
		assert.Equal(t, "BAD_REQUEST", resp.Error.Code, q)
	}

	rec := a.request("POST", base+"/tap", map[string]float64{"x": 20, "y": 20, "zoom": 1e308})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope(t, rec, nil)

	// Nothing was selected by the rejected tap.
	var desc session.Described
	rec = a.request("GET", base+"/selection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &desc)
	assert.Empty(t, desc.Selected)
}

func TestTapAndSelection(t *testing.T) {
	a := newTestAPI(t, fixed(menuResponse()), 0)
	id := a.uploadedSession()
	base := "/api/sessions/" + id

	var tap tapResponse
	rec := a.request("POST", base+"/tap", map[string]float64{"x": 20, "y": 20})
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &tap)
	assert.True(t, tap.Hit)
	require.NotNil(t, tap.Target)
	assert.Equal(t, "ラーメン", tap.Target.Text)
	assert.Equal(t, session.Described{Selected: "ラーメン", Description: "Noodle soup in broth", Found: true}, tap.Popup)

	// A miss keeps the popup open.
	tap = tapResponse{}
	rec = a.request("POST", base+"/tap", map[string]float64{"x": 190, "y": 90})
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &tap)
	assert.False(t, tap.Hit)
	assert.Nil(t, tap.Target)
	assert.Equal(t, "ラーメン", tap.Popup.Selected)

	rec = a.request("POST", base+"/tap", map[string]float64{"x": 20})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var desc session.Described
	rec = a.request("POST", base+"/selection", map[string]int{"index": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &desc)
	assert.Equal(t, "餃子", desc.Selected)
	assert.False(t, desc.Found)
	assert.Equal(t, menu.DefaultFallback, desc.Description)

	rec = a.request("POST", base+"/selection", map[string]int{"index": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.request("POST", base+"/selection", map[string]string{"text": "ラーメン"})
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &desc)
	assert.True(t, desc.Found)

	rec = a.request("POST", base+"/selection", map[string]interface{}{"text": "ラーメン", "index": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.request("GET", base+"/selection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &desc)
	assert.Equal(t, "ラーメン", desc.Selected)

	rec = a.request("DELETE", base+"/selection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum session.Summary
	envelope(t, rec, &sum)
	assert.Empty(t, sum.Selected)
	assert.Len(t, sum.Regions, 2)

	rec = a.request("POST", base+"/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reset session.Summary
	envelope(t, rec, &reset)
	assert.Nil(t, reset.Image)
	assert.Empty(t, reset.Regions)
}

func TestOverlayAndCrop(t *testing.T) {
	a := newTestAPI(t, fixed(menuResponse()), 0)

	empty := a.createSession()
	rec := a.request("GET", "/api/sessions/"+empty+"/overlay.png", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	id := a.uploadedSession()
	base := "/api/sessions/" + id

	rec = a.request("GET", base+"/overlay.png?color=00FF00&labels=false", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())

	rec = a.request("GET", base+"/overlay.png?color=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.request("GET", base+"/regions/0/crop.png?scale=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img, err = png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())

	rec = a.request("GET", base+"/regions/9/crop.png", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.request("GET", base+"/regions/0/crop.png?scale=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLookup(t *testing.T) {
	a := newTestAPI(t, fixed(menuResponse()), 0)

	var desc session.Described
	rec := a.request("GET", "/api/menu/lookup?name=%E3%83%A9%E3%83%BC%E3%83%A1%E3%83%B3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &desc)
	assert.Equal(t, "Noodle soup in broth", desc.Description)
	assert.True(t, desc.Found)

	rec = a.request("GET", "/api/menu/lookup?name=sushi", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	envelope(t, rec, &desc)
	assert.False(t, desc.Found)
	assert.Equal(t, menu.DefaultFallback, desc.Description)

	rec = a.request("GET", "/api/menu/lookup", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	a := newTestAPI(t, fixed(menuResponse()), 0)
	rec := a.request("GET", "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := envelope(t, rec, nil)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}
