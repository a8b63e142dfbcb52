package sources_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/etaflow/internal/adapters/sources"
	"github.com/okian/etaflow/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHTTPFetcher(t *testing.T) {
	fc := model.FetchContext{RunID: "run-9", DriverID: "d 1", LoadID: "l1"}

	Convey("Given a provider that answers with JSON", t, func() {
		var gotQuery, gotKey, gotRun string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("driver_id") + "/" + r.URL.Query().Get("load_id")
			gotKey = r.Header.Get("X-Api-Key")
			gotRun = r.Header.Get("X-Request-ID")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"congestion_level": 4, "incidents": [{"id": "a"}]}`))
		}))
		defer srv.Close()

		f, err := sources.NewHTTPFetcher(srv.URL+"/traffic?region=east", sources.WithHeader("X-Api-Key", "secret"))
		So(err, ShouldBeNil)

		data, err := f.Fetch(context.Background(), fc)

		Convey("Then the payload is decoded and identifiers are sent", func() {
			So(err, ShouldBeNil)
			So(data["congestion_level"], ShouldEqual, 4.0)
			So(data["incidents"], ShouldHaveLength, 1)
			So(gotQuery, ShouldEqual, "d 1/l1")
			So(gotKey, ShouldEqual, "secret")
			So(gotRun, ShouldEqual, "run-9")
		})
	})

	Convey("Given a provider returning 503", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		f, _ := sources.NewHTTPFetcher(srv.URL)
		_, err := f.Fetch(context.Background(), fc)

		Convey("Then an UpstreamError is returned", func() {
			var ue *sources.UpstreamError
			So(errors.As(err, &ue), ShouldBeTrue)
			So(ue.Status, ShouldEqual, http.StatusServiceUnavailable)
			So(ue.Body, ShouldEqual, "maintenance")
			So(errors.Is(err, sources.ErrUpstream), ShouldBeTrue)
		})
	})

	Convey("Given a provider returning garbage", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		f, _ := sources.NewHTTPFetcher(srv.URL)
		_, err := f.Fetch(context.Background(), fc)
		So(errors.Is(err, sources.ErrUpstream), ShouldBeTrue)
	})

	Convey("Given a provider whose payload exceeds the body cap", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"padding":"`))
			_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
			_, _ = w.Write([]byte(`"}`))
		}))
		defer srv.Close()

		f, _ := sources.NewHTTPFetcher(srv.URL, sources.WithMaxBodySize(256))
		data, err := f.Fetch(context.Background(), fc)

		Convey("Then the fetch fails instead of reading it all", func() {
			So(errors.Is(err, sources.ErrUpstream), ShouldBeTrue)
			So(data, ShouldBeNil)
		})
	})

	Convey("Given a slow provider and a short deadline", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()

		f, _ := sources.NewHTTPFetcher(srv.URL)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := f.Fetch(ctx, fc)

		Convey("Then the deadline aborts the call", func() {
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})

	Convey("Given an endpoint without an http scheme", t, func() {
		_, err := sources.NewHTTPFetcher("ftp://example.com")
		So(err, ShouldNotBeNil)
	})
}
