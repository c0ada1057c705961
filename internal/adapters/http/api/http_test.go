package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/co2risk/internal/adapters/http/api"
	service "github.com/okian/co2risk/internal/app"
	"github.com/okian/co2risk/internal/domain/policy"
	"github.com/okian/co2risk/internal/domain/types"
	"github.com/okian/co2risk/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

// failingDeps returns the same error from every operation.
type failingDeps struct {
	err error
}

func (f *failingDeps) Decide(context.Context, service.DecisionRequest) (types.Decision, error) {
	return types.Decision{}, f.err
}

func (f *failingDeps) DecideBatch(context.Context, service.BatchRequest) (types.BatchDecision, error) {
	return types.BatchDecision{}, f.err
}

func (f *failingDeps) FleetCompliance(context.Context, []float64, string) (types.FleetCompliance, error) {
	return types.FleetCompliance{}, f.err
}

func (f *failingDeps) Policies() []policy.Policy { return nil }
func (f *failingDeps) PenaltyRate() float64      { return 0 }

func newTestRouter(deps api.Dependencies) http.Handler {
	r := api.NewRouter()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}).Register(r)
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder, v any) {
	So(json.Unmarshal(w.Body.Bytes(), v), ShouldBeNil)
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a router backed by a started service", t, func() {
		svc := service.New()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		h := newTestRouter(svc)

		Convey("Then health reports ok", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then stats are served as JSON", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
		})

		Convey("Then metrics are exposed", func() {
			do(h, http.MethodGet, "/healthz", "")
			w := do(h, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "co2risk_http_requests_total")
		})

		Convey("Then unknown routes are not found", func() {
			w := do(h, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are rejected", func() {
			w := do(h, http.MethodGet, "/v1/decisions", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestDecisionsHandler(t *testing.T) {
	Convey("Given a router backed by a started service", t, func() {
		svc := service.New()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		h := newTestRouter(svc)

		Convey("When a FULL decision is requested with catalog column names", func() {
			w := do(h, http.MethodPost, "/v1/decisions", `{
				"mode": "full",
				"co2_pred_g_km": 230,
				"features": {
					"Engine Size(L)": 3.5,
					"Cylinders": 6,
					"Vehicle Class": "SUV - STANDARD",
					"Fuel Type": "D",
					"Fuel Consumption Comb (L/100 km)": 11.2
				}
			}`)

			Convey("Then the decision record is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var d types.Decision
				decode(w, &d)
				So(d.Model, ShouldEqual, "rf_full_v1")
				So(d.RiskScore, ShouldEqual, 57.5)
				So(d.Compliance, ShouldEqual, "FAIL")
				So(d.LimitGKm, ShouldEqual, 200.0)
				So(d.Reasons, ShouldHaveLength, 3)
				So(d.Reasons[0], ShouldContainSubstring, "fuel consumption")
			})
		})

		Convey("When the limit is passed as a query parameter", func() {
			w := do(h, http.MethodPost, "/v1/decisions?limit=100", `{"co2_pred_g_km": 95}`)

			Convey("Then it is applied", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var d types.Decision
				decode(w, &d)
				So(d.LimitGKm, ShouldEqual, 100.0)
				So(d.Compliance, ShouldEqual, "AT_RISK")
			})
		})

		Convey("When the limit is zero", func() {
			w := do(h, http.MethodPost, "/v1/decisions", `{"co2_pred_g_km": 95, "limit_g_km": 0}`)

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"code":"invalid_limit"`)
			})
		})

		Convey("When the estimate is negative", func() {
			w := do(h, http.MethodPost, "/v1/decisions", `{"co2_pred_g_km": -3}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, `"code":"invalid_estimate"`)
		})

		Convey("When the estimate is missing", func() {
			w := do(h, http.MethodPost, "/v1/decisions", `{"mode": "STRICT"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
		})

		Convey("When the mode is unknown", func() {
			w := do(h, http.MethodPost, "/v1/decisions", `{"co2_pred_g_km": 100, "mode": "turbo"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, `"code":"unknown_mode"`)
		})

		Convey("When the body is not JSON", func() {
			w := do(h, http.MethodPost, "/v1/decisions", `not-json`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the query limit is not a number", func() {
			w := do(h, http.MethodPost, "/v1/decisions?limit=abc", `{"co2_pred_g_km": 100}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a batch with a policy is posted", func() {
			w := do(h, http.MethodPost, "/v1/decisions/batch", `{
				"policy": "EU_2020_2024",
				"vehicles": [
					{"id": "a", "co2_pred_g_km": 100},
					{"id": "b", "co2_pred_g_km": 110},
					{"id": "c", "co2_pred_g_km": 90}
				]
			}`)

			Convey("Then decisions and the fleet summary are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var res types.BatchDecision
				decode(w, &res)
				So(res.BatchID, ShouldNotBeEmpty)
				So(res.Decisions, ShouldHaveLength, 3)
				So(res.Decisions[1].ID, ShouldEqual, "b")
				So(res.Fleet, ShouldNotBeNil)
				So(res.Fleet.EstimatedPenaltyEUR, ShouldEqual, 1425.0)
			})
		})

		Convey("When a batch vehicle has no estimate", func() {
			w := do(h, http.MethodPost, "/v1/decisions/batch",
				`{"vehicles": [{"id": "a", "features": {"cylinders": 8}}]}`)

			Convey("Then the batch is rejected instead of read as 0 g/km", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
				So(w.Body.String(), ShouldContainSubstring, "co2_pred_g_km")
				So(w.Body.String(), ShouldNotContainSubstring, "PASS")
			})
		})

		Convey("When a batch vehicle has a null estimate", func() {
			w := do(h, http.MethodPost, "/v1/decisions/batch",
				`{"vehicles": [{"id": "a", "co2_pred_g_km": 150}, {"id": "b", "co2_pred_g_km": null}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "vehicle b")
		})

		Convey("When a batch names an unknown mode", func() {
			w := do(h, http.MethodPost, "/v1/decisions/batch",
				`{"mode": "bogus", "vehicles": [{"co2_pred_g_km": 150}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, `"code":"unknown_mode"`)
		})

		Convey("When an empty batch is posted", func() {
			w := do(h, http.MethodPost, "/v1/decisions/batch", `{"vehicles": []}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, `"code":"empty_batch"`)
		})
	})
}

func TestFleetHandler(t *testing.T) {
	Convey("Given a router backed by a started service", t, func() {
		svc := service.New()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		h := newTestRouter(svc)

		Convey("When a compliant fleet is posted", func() {
			w := do(h, http.MethodPost, "/v1/fleet/compliance",
				`{"co2_predictions": [90, 90], "policy": "EU_2020_2024"}`)

			Convey("Then it reports compliance without penalty", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var fc types.FleetCompliance
				decode(w, &fc)
				So(fc.Compliant, ShouldBeTrue)
				So(fc.FleetAvgGKm, ShouldEqual, 90.0)
				So(fc.ExcessGKm, ShouldEqual, 0.0)
				So(fc.EstimatedPenaltyEUR, ShouldEqual, 0.0)
			})
		})

		Convey("When the policy is unknown", func() {
			w := do(h, http.MethodPost, "/v1/fleet/compliance",
				`{"co2_predictions": [100], "policy": "NOT_A_POLICY"}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, `"code":"unknown_policy"`)
		})

		Convey("When the fleet has null values", func() {
			w := do(h, http.MethodPost, "/v1/fleet/compliance",
				`{"co2_predictions": [200, null, null], "policy": "EU_2020_2024"}`)

			Convey("Then the request is rejected instead of averaging zeros", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
				So(w.Body.String(), ShouldContainSubstring, "co2_predictions[1]")
			})
		})

		Convey("When the fleet is empty", func() {
			w := do(h, http.MethodPost, "/v1/fleet/compliance",
				`{"co2_predictions": [], "policy": "EU_2020_2024"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, `"code":"empty_fleet"`)
		})
	})
}

func TestCatalogHandler(t *testing.T) {
	Convey("Given a router backed by a started service", t, func() {
		svc := service.New()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		h := newTestRouter(svc)

		Convey("Then policies are listed with the penalty rate", func() {
			w := do(h, http.MethodGet, "/v1/policies", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body struct {
				PenaltyRatePerGram float64         `json:"penalty_rate_per_gram"`
				Policies           []policy.Policy `json:"policies"`
			}
			decode(w, &body)
			So(body.PenaltyRatePerGram, ShouldEqual, 95.0)
			So(body.Policies, ShouldHaveLength, 4)
			So(body.Policies[0].Key, ShouldEqual, policy.EU20202024)
		})

		Convey("Then fuel types are listed", func() {
			w := do(h, http.MethodGet, "/v1/fuel-types", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"code":"D"`)
		})
	})
}

func TestErrorMapping(t *testing.T) {
	Convey("Given dependencies that are not started", t, func() {
		h := newTestRouter(&failingDeps{err: service.ErrNotStarted})

		Convey("Then requests report unavailability", func() {
			w := do(h, http.MethodPost, "/v1/decisions", `{"co2_pred_g_km": 1}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})

	Convey("Given dependencies that fail unexpectedly", t, func() {
		h := newTestRouter(&failingDeps{err: errors.New("boom")})

		Convey("Then requests report an internal error", func() {
			w := do(h, http.MethodPost, "/v1/fleet/compliance", `{"co2_predictions": [1], "policy": "X"}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, `"code":"internal"`)
		})
	})

	Convey("Given a batch above the size cap", t, func() {
		h := newTestRouter(&failingDeps{err: service.ErrBatchTooLarge})

		Convey("Then the request is too large", func() {
			w := do(h, http.MethodPost, "/v1/decisions/batch", `{"vehicles": [{"co2_pred_g_km": 1}]}`)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})
	})
}
