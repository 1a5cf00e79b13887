package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/review360/internal/adapters/http/api"
	"github.com/okian/review360/internal/adapters/repository"
	service "github.com/okian/review360/internal/app"
	"github.com/okian/review360/internal/domain/aggregate"
	"github.com/okian/review360/internal/domain/types"
	"github.com/okian/review360/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("session-%d", n)
	}
}

func newMux(opts ...api.Option) (*http.ServeMux, *service.Service) {
	svc := service.New(
		service.WithLogger(logger.Discard()),
		service.WithIDGenerator(sequentialIDs()),
		service.WithChartSize(240),
	)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, opts...).Register(context.Background(), mux)
	return mux, svc
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		return ""
	}
	return body.Code
}

const threeByThree = `{"competencies":["Leadership","Teamwork","Ethics"],"evaluators":["Self","Peers","Manager"]}`

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newMux()
		defer svc.Stop()

		Convey("When /healthz is scraped", func() {
			do(mux, http.MethodGet, "/stats", "")
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then the Prometheus exposition is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "review360_")
			})
		})

		Convey("When /stats is requested", func() {
			w := do(mux, http.MethodGet, "/stats", "")

			Convey("Then the service statistics are returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				var stats map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
				So(stats["started"], ShouldEqual, true)
				So(stats["activeSessions"], ShouldEqual, 0.0)
			})
		})

		Convey("When a route is called with the wrong method", func() {
			w := do(mux, http.MethodGet, "/aggregate", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("When registering on a nil mux", func() {
			srv := api.NewServer(svc, svc)
			So(func() { srv.Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestSessions(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newMux()
		defer svc.Stop()

		Convey("When a session is created with an explicit layout", func() {
			w := do(mux, http.MethodPost, "/sessions", threeByThree)
			So(w.Code, ShouldEqual, http.StatusCreated)
			So(w.Header().Get("Location"), ShouldEqual, "/sessions/session-1")

			var sess types.Session
			So(json.Unmarshal(w.Body.Bytes(), &sess), ShouldBeNil)

			Convey("Then every draft cell holds the default score", func() {
				So(sess.ID, ShouldEqual, "session-1")
				So(sess.Competencies, ShouldResemble, []string{"Leadership", "Teamwork", "Ethics"})
				So(sess.Scores, ShouldResemble, [][]float64{{3, 3, 3}, {3, 3, 3}, {3, 3, 3}})
				So(sess.Submitted, ShouldBeFalse)
				So(sess.SubmittedAt, ShouldBeNil)
			})

			Convey("And it can be read back", func() {
				w := do(mux, http.MethodGet, "/sessions/session-1", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"id":"session-1"`)
			})

			Convey("And results are withheld until data is submitted", func() {
				w := do(mux, http.MethodGet, "/sessions/session-1/results", "")
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "missing_input")

				w = do(mux, http.MethodGet, "/sessions/session-1/charts/radar", "")
				So(w.Code, ShouldEqual, http.StatusConflict)
			})

			Convey("And single cells can be edited within the scale", func() {
				w := do(mux, http.MethodPatch, "/sessions/session-1/scores",
					`{"competency":"Teamwork","evaluator":"Peers","score":5}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				var got types.Session
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.Scores[1][1], ShouldEqual, 5.0)
			})

			Convey("And invalid edits are rejected", func() {
				cases := []struct {
					name string
					body string
				}{
					{"above the scale", `{"competency":"Teamwork","evaluator":"Peers","score":6}`},
					{"below the scale", `{"competency":"Teamwork","evaluator":"Peers","score":0}`},
					{"unknown competency", `{"competency":"Charisma","evaluator":"Peers","score":4}`},
					{"missing score", `{"competency":"Teamwork","evaluator":"Peers"}`},
					{"unknown field", `{"competency":"Teamwork","evaluator":"Peers","score":4,"weight":2}`},
					{"malformed JSON", `{"competency":`},
				}
				for _, tc := range cases {
					w := do(mux, http.MethodPatch, "/sessions/session-1/scores", tc.body)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(errorCode(w), ShouldEqual, "bad_request")
				}
			})

			Convey("And a full matrix can be stored and submitted", func() {
				w := do(mux, http.MethodPut, "/sessions/session-1/matrix",
					`{"scores":[[4,5,4],[2,3,2],[5,4,5]]}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				var got types.Session
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.Submitted, ShouldBeTrue)
				So(got.SubmittedAt, ShouldNotBeNil)

				Convey("Then results keep the matrix order", func() {
					w := do(mux, http.MethodGet, "/sessions/session-1/results", "")
					So(w.Code, ShouldEqual, http.StatusOK)
					var res types.Result
					So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)

					So(len(res.Competencies), ShouldEqual, 3)
					So(res.Competencies[0].Name, ShouldEqual, "Leadership")
					So(res.Competencies[1].Mean, ShouldAlmostEqual, 7.0/3, 1e-9)
					So(res.Evaluators[0].Name, ShouldEqual, "Self")
					So(res.Evaluators[0].Mean, ShouldAlmostEqual, 11.0/3, 1e-9)
					So(res.TopStrengths[0].Competency, ShouldEqual, "Ethics")
					So(res.BottomAreas[0].Competency, ShouldEqual, "Teamwork")
					So(res.DegreesOfFreedom, ShouldEqual, 2)
					So(res.ConfidenceLevel, ShouldEqual, 0.95)
				})

				Convey("And every chart kind renders as PNG", func() {
					for _, kind := range service.ChartKinds() {
						w := do(mux, http.MethodGet, "/sessions/session-1/charts/"+kind, "")
						So(w.Code, ShouldEqual, http.StatusOK)
						So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
						img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
						So(err, ShouldBeNil)
						So(img.Bounds().Dx(), ShouldEqual, 240)
					}
				})

				Convey("And unknown chart kinds are rejected", func() {
					w := do(mux, http.MethodGet, "/sessions/session-1/charts/pie", "")
					So(w.Code, ShouldEqual, http.StatusBadRequest)
				})
			})

			Convey("And a matrix of the wrong shape is rejected", func() {
				w := do(mux, http.MethodPut, "/sessions/session-1/matrix", `{"scores":[[4,5,4],[2,3,2]]}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And the draft can be submitted as is", func() {
				w := do(mux, http.MethodPost, "/sessions/session-1/submit", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				w = do(mux, http.MethodGet, "/sessions/session-1/results", "")
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And it can be deleted", func() {
				w := do(mux, http.MethodDelete, "/sessions/session-1", "")
				So(w.Code, ShouldEqual, http.StatusNoContent)

				w = do(mux, http.MethodGet, "/sessions/session-1", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_found")
				w = do(mux, http.MethodDelete, "/sessions/session-1", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a session is created without a body", func() {
			w := do(mux, http.MethodPost, "/sessions", "")

			Convey("Then the default layout is used", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				var sess types.Session
				So(json.Unmarshal(w.Body.Bytes(), &sess), ShouldBeNil)
				So(sess.Competencies, ShouldResemble, service.DefaultCompetencies())
				So(sess.Evaluators, ShouldResemble, service.DefaultEvaluators())
			})
		})

		Convey("When a session is created with duplicate or blank names", func() {
			dup := do(mux, http.MethodPost, "/sessions", `{"competencies":["A","A"]}`)
			blank := do(mux, http.MethodPost, "/sessions", `{"evaluators":["Self",""]}`)
			spaces := do(mux, http.MethodPost, "/sessions", `{"evaluators":["Self","  "]}`)

			Convey("Then it is rejected", func() {
				So(dup.Code, ShouldEqual, http.StatusBadRequest)
				So(blank.Code, ShouldEqual, http.StatusBadRequest)
				So(spaces.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a single evaluator session is submitted", func() {
			w := do(mux, http.MethodPost, "/sessions", `{"competencies":["A","B"],"evaluators":["Self"]}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			w = do(mux, http.MethodPost, "/sessions/session-1/submit", "")
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then results and charts report insufficient evaluators", func() {
				w := do(mux, http.MethodGet, "/sessions/session-1/results", "")
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(errorCode(w), ShouldEqual, "insufficient_evaluators")

				w = do(mux, http.MethodGet, "/sessions/session-1/charts/radar", "")
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			})
		})

		Convey("When an unknown session is addressed", func() {
			for _, tc := range []struct{ method, target, body string }{
				{http.MethodGet, "/sessions/nope", ""},
				{http.MethodPost, "/sessions/nope/submit", ""},
				{http.MethodGet, "/sessions/nope/results", ""},
				{http.MethodPatch, "/sessions/nope/scores", `{"competency":"A","evaluator":"B","score":3}`},
			} {
				w := do(mux, tc.method, tc.target, tc.body)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			}
		})
	})
}

func TestAggregate(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newMux()
		defer svc.Stop()

		Convey("When a two by two matrix with tied rows is posted", func() {
			w := do(mux, http.MethodPost, "/aggregate",
				`{"competencies":["A","B"],"evaluators":["E1","E2"],"scores":[[1,5],[3,3]]}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			var res types.Result
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)

			Convey("Then the statistics match the hand computed values", func() {
				So(res.Evaluators, ShouldResemble, []types.EvaluatorMean{{Name: "E1", Mean: 2}, {Name: "E2", Mean: 4}})
				So(res.Competencies[0].Mean, ShouldEqual, 3.0)
				So(res.Competencies[0].Std, ShouldAlmostEqual, 2.8284271, 1e-6)
				So(res.Competencies[0].Variance, ShouldAlmostEqual, 8.0, 1e-9)
				So(res.Competencies[1].Std, ShouldEqual, 0.0)
				So(res.DegreesOfFreedom, ShouldEqual, 1)
			})

			Convey("And ties keep the original row order", func() {
				So(res.TopStrengths, ShouldResemble, []types.Ranked{{Competency: "A", Mean: 3}, {Competency: "B", Mean: 3}})
				So(res.BottomAreas, ShouldResemble, []types.Ranked{{Competency: "A", Mean: 3}, {Competency: "B", Mean: 3}})
			})
		})

		Convey("When scores fall outside the rating scale", func() {
			w := do(mux, http.MethodPost, "/aggregate",
				`{"competencies":["A"],"evaluators":["E1","E2"],"scores":[[-3,10]]}`)

			Convey("Then they are aggregated as given", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"mean":3.5`)
			})
		})

		Convey("When the matrix cannot be aggregated", func() {
			cases := []struct {
				name   string
				body   string
				status int
				code   string
			}{
				{"empty", `{"competencies":[],"evaluators":[],"scores":[]}`, http.StatusUnprocessableEntity, "empty_matrix"},
				{"no evaluators", `{"competencies":["A"],"evaluators":[],"scores":[[]]}`, http.StatusUnprocessableEntity, "empty_matrix"},
				{"one evaluator", `{"competencies":["A","B"],"evaluators":["E1"],"scores":[[1],[2]]}`, http.StatusUnprocessableEntity, "insufficient_evaluators"},
				{"ragged rows", `{"competencies":["A","B"],"evaluators":["E1","E2"],"scores":[[1,2],[3]]}`, http.StatusBadRequest, "bad_request"},
				{"duplicate evaluators", `{"competencies":["A"],"evaluators":["E1","E1"],"scores":[[1,2]]}`, http.StatusBadRequest, "bad_request"},
				{"overflowing variance", `{"competencies":["A"],"evaluators":["E1","E2"],"scores":[[1e200,-1e200]]}`, http.StatusUnprocessableEntity, "non_finite"},
			}
			for _, tc := range cases {
				w := do(mux, http.MethodPost, "/aggregate", tc.body)
				So(w.Code, ShouldEqual, tc.status)
				So(errorCode(w), ShouldEqual, tc.code)
			}
		})
	})
}

func TestRubric(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newMux()
		defer svc.Stop()

		Convey("When no language is requested", func() {
			w := do(mux, http.MethodGet, "/rubric", "")

			Convey("Then the English rubric is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Language"), ShouldEqual, "en")
				So(w.Body.String(), ShouldContainSubstring, "Leadership")
			})
		})

		Convey("When Spanish is requested by query or header", func() {
			byQuery := do(mux, http.MethodGet, "/rubric?lang=es", "")

			req := httptest.NewRequest(http.MethodGet, "/rubric", http.NoBody)
			req.Header.Set("Accept-Language", "es-MX,es;q=0.9")
			byHeader := httptest.NewRecorder()
			mux.ServeHTTP(byHeader, req)

			Convey("Then the Spanish rubric is served", func() {
				So(byQuery.Header().Get("Content-Language"), ShouldEqual, "es")
				So(byQuery.Body.String(), ShouldContainSubstring, "Liderazgo")
				So(byHeader.Header().Get("Content-Language"), ShouldEqual, "es")
			})
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a server limited to a burst of one request", t, func() {
		mux, svc := newMux(api.WithRateLimit(0.001, 1))
		defer svc.Stop()

		first := do(mux, http.MethodGet, "/rubric", "")
		second := do(mux, http.MethodGet, "/rubric", "")

		Convey("Then the second business request is rejected", func() {
			So(first.Code, ShouldEqual, http.StatusOK)
			So(second.Code, ShouldEqual, http.StatusTooManyRequests)
			So(errorCode(second), ShouldEqual, "rate_limited")
			So(second.Header().Get("Retry-After"), ShouldEqual, "1")
		})

		Convey("And operational endpoints stay reachable", func() {
			So(do(mux, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
			So(do(mux, http.MethodGet, "/stats", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestServiceUnavailable(t *testing.T) {
	Convey("Given a server over a stopped service", t, func() {
		svc := service.New(service.WithLogger(logger.Discard()))
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)

		Convey("When a session is requested", func() {
			w := do(mux, http.MethodPost, "/sessions", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(errorCode(w), ShouldEqual, "unavailable")
		})
	})
}

type failingDeps struct {
	api.Dependencies
}

func (failingDeps) Session(context.Context, string) (types.Session, error) {
	return types.Session{}, errors.New("disk on fire")
}

// unencodableDeps returns a session view that encoding/json rejects.
type unencodableDeps struct {
	api.Dependencies
}

func (unencodableDeps) Session(_ context.Context, id string) (types.Session, error) {
	return types.Session{ID: id, Scores: [][]float64{{math.Inf(1)}}}, nil
}

type staticStats map[string]interface{}

func (s staticStats) GetStats() map[string]interface{} { return s }

func TestInternalError(t *testing.T) {
	Convey("Given dependencies failing with an unclassified error", t, func() {
		mux := http.NewServeMux()
		api.NewServer(failingDeps{}, staticStats{"ok": true}).Register(context.Background(), mux)

		w := do(mux, http.MethodGet, "/sessions/s1", "")

		Convey("Then a 500 is returned with the operation in the message", func() {
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(errorCode(w), ShouldEqual, "internal_error")
			So(w.Body.String(), ShouldContainSubstring, "api.get_session: disk on fire")
		})
	})
}

func TestUnencodableResponse(t *testing.T) {
	Convey("Given a handler whose response cannot be encoded", t, func() {
		mux := http.NewServeMux()
		api.NewServer(unencodableDeps{}, staticStats{"ok": true}).Register(context.Background(), mux)

		w := do(mux, http.MethodGet, "/sessions/s1", "")

		Convey("Then a 500 with an error body is returned instead of an empty 200", func() {
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(errorCode(w), ShouldEqual, "internal_error")
			So(w.Body.String(), ShouldContainSubstring, "encode response")
		})
	})
}

func TestError(t *testing.T) {
	Convey("Given op-tagged errors", t, func() {
		cause := fmt.Errorf("session x: %w", repository.ErrNotFound)

		Convey("Then kinds and causes are both matched", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: session x: session not found")

			var apiErr *api.Error
			So(errors.As(err, &apiErr), ShouldBeTrue)
			So(apiErr.Op, ShouldEqual, "api.op")
		})

		Convey("And the helpers render partial errors", func() {
			So(api.NewKind("api.op", api.ErrRateLimited).Error(), ShouldEqual, "api.op: rate limited")
			So(api.Wrap("api.op", aggregate.ErrEmptyMatrix).Error(), ShouldEqual,
				"api.op: score matrix has no competencies or no evaluators")
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})
	})
}
