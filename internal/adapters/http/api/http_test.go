package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/fairlens/internal/adapters/http/api"
	service "github.com/okian/fairlens/internal/app"
	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const applicantsCSV = `name,age,gender,race,income,hired
Alice,34,Female,Asian,52000,yes
Bob,45,Male,White,61000,no
Carol,29,Female,Black,48000,yes
Dan,52,Male,White,75000,yes
Eve,38,Female,Hispanic,55000,no
Frank,41,Male,Black,58000,yes
Grace,27,Female,White,46000,no
Hank,60,Male,Asian,80000,yes
`

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	server := api.NewServer(svc, svc, svc.MaxUploadBytes())
	server.Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, session string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if session != "" {
		req.Header.Set(api.SessionHeader, session)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func multipartBody(filename, content string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		panic(err)
	}
	_, _ = part.Write([]byte(content))
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func decode(w *httptest.ResponseRecorder, v any) {
	So(json.Unmarshal(w.Body.Bytes(), v), ShouldBeNil)
}

func startService(opts ...service.Option) *service.Service {
	opts = append([]service.Option{service.WithWorkerCount(2), service.WithAnalysisTimeout(5 * time.Second)}, opts...)
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		svc := startService()
		defer svc.Stop()
		mux := newMux(svc)

		Convey("Then health endpoint should expose metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And stats endpoint should report the service", func() {
			w := do(mux, http.MethodGet, "/stats", "", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			decode(w, &stats)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("And stats endpoint should reject other methods", func() {
			w := do(mux, http.MethodPost, "/stats", "", nil, nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And dashboard endpoint should serve HTML", func() {
			w := do(mux, http.MethodGet, "/dashboard", "", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "fairlens operations")
		})

		Convey("And unknown API routes should return 404", func() {
			w := do(mux, http.MethodGet, "/api/unknown", "s-1", nil, nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSessions(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		svc := startService()
		defer svc.Stop()
		mux := newMux(svc)

		Convey("A request without a session gets a cookie", func() {
			w := do(mux, http.MethodGet, "/api/fairness/selection", "", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			cookies := w.Result().Cookies()
			So(len(cookies), ShouldEqual, 1)
			So(cookies[0].Name, ShouldEqual, api.SessionCookie)
			So(w.Header().Get(api.SessionHeader), ShouldEqual, cookies[0].Value)
		})

		Convey("The cookie identifies the session on later requests", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/fairness/selection", nil)
			req.AddCookie(&http.Cookie{Name: api.SessionCookie, Value: "from-cookie"})
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get(api.SessionHeader), ShouldEqual, "from-cookie")
			So(w.Result().Cookies(), ShouldBeEmpty)
		})

		Convey("An invalid session header is rejected", func() {
			w := do(mux, http.MethodGet, "/api/fairness/selection", "has space", nil, nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A malformed cookie is replaced with a fresh session", func() {
			for _, stale := range []string{"has space", strings.Repeat("x", 512)} {
				req := httptest.NewRequest(http.MethodGet, "/api/fairness/selection", nil)
				req.AddCookie(&http.Cookie{Name: api.SessionCookie, Value: stale})
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				cookies := w.Result().Cookies()
				So(len(cookies), ShouldEqual, 1)
				So(cookies[0].Value, ShouldNotEqual, stale)
				So(w.Header().Get(api.SessionHeader), ShouldEqual, cookies[0].Value)
			}
		})
	})
}

func TestDatasetsFlow(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		svc := startService(service.WithMaxUploadBytes(4096))
		defer svc.Stop()
		mux := newMux(svc)

		Convey("When uploading a CSV and waiting for the result", func() {
			body, ct := multipartBody("applicants.csv", applicantsCSV)
			w := do(mux, http.MethodPost, "/api/datasets?wait=true", "s-1", body, map[string]string{"Content-Type": ct})

			Convey("Then the snapshot should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var ds model.Dataset
				decode(w, &ds)
				So(ds.Filename, ShouldEqual, "applicants.csv")
				So(ds.RowCount, ShouldEqual, 8)
				So(ds.ColumnCount, ShouldEqual, 6)
				So(len(ds.Columns), ShouldEqual, 6)
				So(ds.ProcessingTime, ShouldEndWith, "seconds")
			})

			Convey("And the current dataset should be readable", func() {
				w := do(mux, http.MethodGet, "/api/datasets/current", "s-1", nil, nil)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And another session should have no dataset", func() {
				w := do(mux, http.MethodGet, "/api/datasets/current", "s-2", nil, nil)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("And the attributes should list protected columns", func() {
				w := do(mux, http.MethodGet, "/api/attributes", "s-1", nil, nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Attributes []model.Column `json:"attributes"`
					Protected  int            `json:"protected"`
					Included   int            `json:"included"`
				}
				decode(w, &resp)
				So(len(resp.Attributes), ShouldEqual, 6)
				So(resp.Protected, ShouldEqual, 4)
				So(resp.Included, ShouldEqual, 4)
			})

			Convey("And a column can be excluded", func() {
				w := do(mux, http.MethodPatch, "/api/attributes/income", "s-1", strings.NewReader(`{"included":false}`), nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				var col model.Column
				decode(w, &col)
				So(col.Name, ShouldEqual, "income")
				So(col.Included, ShouldBeFalse)
			})

			Convey("And patching an unknown column returns 404", func() {
				w := do(mux, http.MethodPatch, "/api/attributes/missing", "s-1", strings.NewReader(`{"included":true}`), nil)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("And patching without a flag returns 400", func() {
				w := do(mux, http.MethodPatch, "/api/attributes/income", "s-1", strings.NewReader(`{}`), nil)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And the selection rate check should run on the rows", func() {
				w := do(mux, http.MethodPost, "/api/fairness/selection-rates", "s-1",
					strings.NewReader(`{"attribute":"gender","outcome":"hired"}`), nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				var r fairness.RateReport
				decode(w, &r)
				So(r.Status, ShouldEqual, fairness.StatusViolation)
				So(r.Threshold, ShouldEqual, fairness.DefaultThreshold)

				w = do(mux, http.MethodPost, "/api/fairness/selection-rates", "s-1",
					strings.NewReader(`{"attribute":"gender","outcome":"hired","threshold":0.3}`), nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				decode(w, &r)
				So(r.Status, ShouldEqual, fairness.StatusPass)
			})

			Convey("And clearing the dataset should return 204", func() {
				w := do(mux, http.MethodDelete, "/api/datasets/current", "s-1", nil, nil)
				So(w.Code, ShouldEqual, http.StatusNoContent)
				w = do(mux, http.MethodGet, "/api/datasets/current", "s-1", nil, nil)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When uploading a raw body without waiting", func() {
			w := do(mux, http.MethodPost, "/api/datasets", "s-1", strings.NewReader(applicantsCSV),
				map[string]string{"Content-Type": "text/csv", api.FilenameHeader: "raw.csv"})

			Convey("Then the job should be queued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var ack map[string]any
				decode(w, &ack)
				So(ack["status"], ShouldEqual, "queued")
				So(ack["session_id"], ShouldEqual, "s-1")
				So(ack["format_label"], ShouldNotBeEmpty)

				jobID, _ := ack["job_id"].(string)
				So(jobID, ShouldNotBeEmpty)

				_, err := svc.Wait(context.Background(), "s-1", jobID)
				So(err, ShouldBeNil)

				w := do(mux, http.MethodGet, "/api/jobs/"+jobID, "s-1", nil, nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				var st model.JobStatus
				decode(w, &st)
				So(st.State, ShouldEqual, model.JobDone)

				w = do(mux, http.MethodGet, "/api/jobs/"+jobID, "s-2", nil, nil)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When an upload is retried with the same idempotency key", func() {
			headers := map[string]string{"Content-Type": "text/csv", api.FilenameHeader: "raw.csv", api.IdempotencyHeader: "k-1"}
			first := do(mux, http.MethodPost, "/api/datasets", "s-1", strings.NewReader(applicantsCSV), headers)
			second := do(mux, http.MethodPost, "/api/datasets", "s-1", strings.NewReader(applicantsCSV), headers)

			Convey("Then the retry should be acknowledged as a duplicate", func() {
				So(first.Code, ShouldEqual, http.StatusAccepted)
				So(second.Code, ShouldEqual, http.StatusOK)
				var a, b map[string]any
				decode(first, &a)
				decode(second, &b)
				So(b["status"], ShouldEqual, "duplicate")
				So(b["duplicate"], ShouldEqual, true)
				So(b["job_id"], ShouldEqual, a["job_id"])
			})
		})

		Convey("When uploads are invalid", func() {
			Convey("An unsupported type returns 415", func() {
				body, ct := multipartBody("report.pdf", "%PDF-1.4")
				w := do(mux, http.MethodPost, "/api/datasets", "s-1", body, map[string]string{"Content-Type": ct})
				So(w.Code, ShouldEqual, http.StatusUnsupportedMediaType)
				var e map[string]string
				decode(w, &e)
				So(e["code"], ShouldEqual, "unsupported_format")
			})

			Convey("A file over the limit returns 413", func() {
				body, ct := multipartBody("big.csv", strings.Repeat("a,b\n", 2000))
				w := do(mux, http.MethodPost, "/api/datasets", "s-1", body, map[string]string{"Content-Type": ct})
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			})

			Convey("An empty body returns 400", func() {
				w := do(mux, http.MethodPost, "/api/datasets", "s-1", strings.NewReader(""),
					map[string]string{"Content-Type": "text/csv", api.FilenameHeader: "empty.csv"})
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("A multipart form without a file returns 400", func() {
				var buf bytes.Buffer
				mw := multipart.NewWriter(&buf)
				_ = mw.WriteField("other", "x")
				_ = mw.Close()
				w := do(mux, http.MethodPost, "/api/datasets", "s-1", &buf, map[string]string{"Content-Type": mw.FormDataContentType()})
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("A corrupt workbook fails analysis with 400 when waiting", func() {
				body, ct := multipartBody("broken.xlsx", "not a zip archive")
				w := do(mux, http.MethodPost, "/api/datasets?wait=true", "s-1", body, map[string]string{"Content-Type": ct})
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var e map[string]string
				decode(w, &e)
				So(e["code"], ShouldEqual, "bad_file")
			})
		})

		Convey("When no dataset was uploaded", func() {
			Convey("Attributes return 404", func() {
				w := do(mux, http.MethodGet, "/api/attributes", "s-9", nil, nil)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Selection rates return 404", func() {
				w := do(mux, http.MethodPost, "/api/fairness/selection-rates", "s-9",
					strings.NewReader(`{"attribute":"gender","outcome":"hired"}`), nil)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestFairnessRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		svc := startService()
		defer svc.Stop()
		mux := newMux(svc)

		Convey("The taxonomy lists the four dimensions", func() {
			w := do(mux, http.MethodGet, "/api/fairness/dimensions", "s-1", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var dims []fairness.Dimension
			decode(w, &dims)
			So(len(dims), ShouldEqual, 4)
		})

		Convey("The default selection is demographic parity", func() {
			w := do(mux, http.MethodGet, "/api/fairness/selection", "s-1", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var resp struct {
				Selection fairness.Selection `json:"selection"`
				Count     int                `json:"count"`
			}
			decode(w, &resp)
			So(resp.Selection[fairness.DimensionGroup], ShouldResemble, []string{"demographic_parity"})
		})

		Convey("Toggling a metric flips it", func() {
			body := `{"dimension":"group","metric":"equal_opportunity"}`
			w := do(mux, http.MethodPost, "/api/fairness/selection/toggle", "s-1", strings.NewReader(body), nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var resp map[string]any
			decode(w, &resp)
			So(resp["selected"], ShouldEqual, true)

			w = do(mux, http.MethodPost, "/api/fairness/selection/toggle", "s-1", strings.NewReader(body), nil)
			decode(w, &resp)
			So(resp["selected"], ShouldEqual, false)
		})

		Convey("Toggling an unknown metric returns 400", func() {
			w := do(mux, http.MethodPost, "/api/fairness/selection/toggle", "s-1",
				strings.NewReader(`{"dimension":"group","metric":"nope"}`), nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Replacing the selection validates it", func() {
			w := do(mux, http.MethodPut, "/api/fairness/selection", "s-1",
				strings.NewReader(`{"individual":["consistency"]}`), nil)
			So(w.Code, ShouldEqual, http.StatusOK)

			w = do(mux, http.MethodPut, "/api/fairness/selection", "s-1",
				strings.NewReader(`{"bogus":["x"]}`), nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("The bias report is fixed and carries the selection", func() {
			w := do(mux, http.MethodGet, "/api/bias-metrics", "s-1", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var r fairness.Report
			decode(w, &r)
			So(r.OverallScore, ShouldEqual, fairness.BiasReport().OverallScore)
			So(r.Selection, ShouldNotBeEmpty)
		})
	})
}

func TestMockRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		svc := startService()
		defer svc.Stop()
		mux := newMux(svc)

		Convey("analyze-dataset returns the canned attributes", func() {
			w := do(mux, http.MethodPost, "/api/analyze-dataset", "s-1", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var resp fairness.AnalyzeDatasetResponse
			decode(w, &resp)
			So(resp, ShouldResemble, fairness.MockAnalyzeDataset())
		})

		Convey("fairness-metrics returns the canned metrics for a JSON body", func() {
			w := do(mux, http.MethodPost, "/api/fairness-metrics", "s-1",
				strings.NewReader(`{"protectedAttributes":["gender"],"fairnessDimensions":{"group":["demographic_parity"]}}`), nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var resp fairness.MetricsResponse
			decode(w, &resp)
			So(resp.Success, ShouldBeTrue)
			So(resp.Metrics.DemographicParity.Overall, ShouldEqual, 0.85)
		})

		Convey("fairness-metrics rejects a non-JSON body", func() {
			w := do(mux, http.MethodPost, "/api/fairness-metrics", "s-1", strings.NewReader("not json"), nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStatsHandler(t *testing.T) {
	Convey("Given a stats handler with a fixed provider", t, func() {
		h := api.NewStatsHandler(&mockStatsProvider{stats: map[string]interface{}{"sessions": 3}})

		Convey("Then it should encode the provider's map", func() {
			w := httptest.NewRecorder()
			h.HandleStats(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"sessions":3`)
			So(w.Body.String(), ShouldContainSubstring, `"uptimeSeconds":`)
		})
	})
}
