package site

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a frontend directory", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html><body>festa</body></html>"), 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "script.js"), []byte("const TOP_N = 3;"), 0o600), ShouldBeNil)

		r := chi.NewRouter()
		r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
		So(Register(context.Background(), r, dir), ShouldBeNil)

		Convey("Then / serves index.html", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, "festa")
		})

		Convey("And assets are served", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/script.js", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "TOP_N")
		})

		Convey("And API routes keep precedence", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/readyz", nil))
			So(w.Code, ShouldEqual, http.StatusNoContent)
		})

		Convey("And missing files are 404", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/missing.css", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And writes are refused", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("POST", "/index.html", nil))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSiteRegisterErrors(t *testing.T) {
	Convey("Given bad frontend locations", t, func() {
		r := chi.NewRouter()

		Convey("Then an empty dir registers nothing", func() {
			So(Register(context.Background(), r, ""), ShouldBeNil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then a missing dir is an error", func() {
			err := Register(context.Background(), r, filepath.Join(t.TempDir(), "nope"))
			So(errors.Is(err, ErrServe), ShouldBeTrue)
		})

		Convey("Then a file is not a directory", func() {
			f := filepath.Join(t.TempDir(), "file")
			So(os.WriteFile(f, nil, 0o600), ShouldBeNil)
			So(errors.Is(Register(context.Background(), r, f), ErrServe), ShouldBeTrue)
		})

		Convey("Then a nil router panics", func() {
			So(func() { _ = Register(context.Background(), nil, "") }, ShouldPanic)
		})
	})
}
