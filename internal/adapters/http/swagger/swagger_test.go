package swagger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/smartystreets/goconvey/convey"
)

func TestSwaggerHandler(t *testing.T) {
	convey.Convey("Given a swagger handler", t, func() {
		mux := http.NewServeMux()
		Register(mux)

		convey.Convey("Then it should serve /openapi.yaml", func() {
			req := httptest.NewRequest("GET", "/openapi.yaml", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
			convey.So(w.Body.Len(), convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("And it should serve /api-docs", func() {
			req := httptest.NewRequest("GET", "/api-docs", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "text/html; charset=utf-8")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "redoc-container")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `spec-url="/openapi.yaml"`)
		})

		convey.Convey("And it should panic on a nil mux", func() {
			convey.So(func() { Register(nil) }, convey.ShouldPanic)
		})
	})
}

func TestOpenAPIDocument(t *testing.T) {
	convey.Convey("Given the embedded OpenAPI document", t, func() {
		doc, err := yaml.Parser().Unmarshal(OpenAPI)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then every API route is described", func() {
			paths, ok := doc["paths"].(map[string]interface{})
			convey.So(ok, convey.ShouldBeTrue)
			for _, p := range []string{"/healthz", "/metrics", "/stats", "/tracks", "/tracks/{track}", "/tracks/{track}/rebuild", "/tracks/{track}/cars", "/strategy"} {
				convey.So(paths, convey.ShouldContainKey, p)
			}
		})
	})
}
