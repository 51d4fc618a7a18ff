package asset

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gorilla/mux"

	"github.com/inamate/visualdrag/internal/document"
)

func uploadRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImageTemplate(t *testing.T) {
	tpl := ImageTemplate("asset_1", "/assets/asset_1.png", "logo", 800, 400)
	if tpl.Kind != document.KindImage {
		t.Errorf("kind = %q", tpl.Kind)
	}
	if tpl.Style.Width != 400 || tpl.Style.Height != 200 || tpl.Style.Opacity != 1 {
		t.Errorf("style = %+v", tpl.Style)
	}
	props := tpl.Props.(document.ImageProps)
	if props.Src != "/assets/asset_1.png" || props.AssetID != "asset_1" {
		t.Errorf("props = %+v", props)
	}

	small := ImageTemplate("asset_2", "/a.png", "icon", 32, 16)
	if small.Style.Width != 32 || small.Style.Height != 16 {
		t.Errorf("small image scaled: %+v", small.Style)
	}
}

func TestUploadServeDelete(t *testing.T) {
	h := NewHandler(t.TempDir())
	r := mux.NewRouter()
	r.HandleFunc("/assets/upload", h.Upload).Methods("POST")
	r.HandleFunc("/assets/{assetId}", h.Remove).Methods("DELETE")
	r.PathPrefix("/assets/").Handler(h.Serve()).Methods("GET")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "banner.png", "image/png", pngBytes(t, 1000, 250)))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		ID       string `json:"id"`
		URL      string `json:"url"`
		Width    int    `json:"width"`
		Name     string `json:"name"`
		Template struct {
			Kind  string         `json:"kind"`
			Style map[string]any `json:"style"`
		} `json:"template"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Width != 1000 || resp.Name != "banner" || resp.Template.Kind != "image" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Template.Style["width"] != 400.0 || resp.Template.Style["height"] != 100.0 {
		t.Errorf("template style = %v", resp.Template.Style)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, resp.URL, nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Cache-Control") == "" {
		t.Errorf("serve status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/assets/"+resp.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/assets/"+resp.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", rec.Code)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	h := NewHandler(t.TempDir())
	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "notes.txt", "text/plain", []byte("hello")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}
