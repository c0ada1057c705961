package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/co2risk/internal/config"
	"github.com/okian/co2risk/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestNewService(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		_ = os.Setenv("CO2RISK_DEFAULT_LIMIT_G_KM", "150")
		_ = os.Setenv("CO2RISK_STRICT_MODEL_ID", "gbm_strict_v2")
		defer func() {
			_ = os.Unsetenv("CO2RISK_DEFAULT_LIMIT_G_KM")
			_ = os.Unsetenv("CO2RISK_STRICT_MODEL_ID")
		}()

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the service is built and started", func() {
			svc, err := newService(cfg, logger.Named("test"))
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then the configuration flows into the handlers", func() {
				h := newHandler(context.Background(), svc)
				req := httptest.NewRequest(http.MethodPost, "/v1/decisions", strings.NewReader(`{"co2_pred_g_km": 140}`))
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"model":"gbm_strict_v2"`)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"limit_g_km":150`)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"compliance":"AT_RISK"`)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled handler", t, func() {
		svc, err := newService(config.New(), logger.Named("test"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()
		h := newHandler(context.Background(), svc)

		for _, path := range []string{"/healthz", "/stats", "/metrics", "/openapi.yaml", "/api-docs", "/v1/policies", "/v1/fuel-types"} {
			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		}
	})
}

func TestSystemMetricsUpdater(t *testing.T) {
	convey.Convey("Given a cancellable context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())

		convey.Convey("Then the updater exits on cancel", func() {
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			cancel()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("updater did not stop")
			}
		})

		convey.Convey("Then a direct update does not panic", func() {
			defer cancel()
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
