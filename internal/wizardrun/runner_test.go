package wizardrun

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/fairlens/internal/adapters/http/api"
	service "github.com/okian/fairlens/internal/app"
	"github.com/okian/fairlens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestServer(ctx context.Context) (*httptest.Server, *service.Service, error) {
	svc := service.New(service.WithWorkerCount(4), service.WithQueueSize(64))
	if err := svc.Start(ctx); err != nil {
		return nil, nil, err
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, svc.MaxUploadBytes()).Register(ctx, mux)
	return httptest.NewServer(mux), svc, nil
}

func TestConfigValidate(t *testing.T) {
	Convey("Given a wizard run configuration", t, func() {
		cfg := Config{BaseURL: "http://localhost:9080", Sessions: 3, Rows: 10, Bias: 0.2, Threshold: 0.1}

		Convey("Defaults are filled in", func() {
			So(cfg.Validate(), ShouldBeNil)
			So(cfg.Workers, ShouldEqual, 3)
			So(cfg.Timeout, ShouldEqual, DefaultTimeout)
		})

		Convey("Invalid values are rejected", func() {
			for _, mutate := range []func(*Config){
				func(c *Config) { c.BaseURL = "" },
				func(c *Config) { c.Sessions = 0 },
				func(c *Config) { c.Rows = -1 },
				func(c *Config) { c.Bias = 0.9 },
				func(c *Config) { c.Threshold = 1.5 },
			} {
				bad := cfg
				mutate(&bad)
				So(errors.Is(bad.Validate(), ErrInvalidConfig), ShouldBeTrue)
			}
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running fairness service", t, func() {
		ctx := context.Background()
		srv, svc, err := newTestServer(ctx)
		So(err, ShouldBeNil)
		defer srv.Close()
		defer svc.Stop()

		Convey("Every session uploads and verifies independently", func() {
			dir := t.TempDir()
			cfg := &Config{
				BaseURL:   srv.URL,
				Sessions:  6,
				Rows:      150,
				Bias:      0.3,
				Threshold: DefaultThreshold,
				Seed:      42,
				Workers:   3,
				Timeout:   10 * time.Second,
				OutputDir: dir,
			}

			stats, results, err := Run(ctx, cfg)
			So(err, ShouldBeNil)
			So(stats.Uploaded, ShouldEqual, 6)
			So(stats.Verified, ShouldEqual, 6)
			So(stats.Failed, ShouldEqual, 0)
			So(stats.Bytes, ShouldBeGreaterThan, 0)
			So(results, ShouldHaveLength, 6)

			seen := map[string]bool{}
			for _, r := range results {
				So(r.Err, ShouldBeNil)
				So(r.Rows, ShouldEqual, 150)
				So(r.Protected, ShouldContain, ColumnGender)
				seen[r.SessionID] = true
			}
			So(seen, ShouldHaveLength, 6)

			files, err := filepath.Glob(filepath.Join(dir, "applicants_*.csv"))
			So(err, ShouldBeNil)
			So(files, ShouldHaveLength, 6)
			data, err := os.ReadFile(filepath.Join(dir, "applicants_42.csv"))
			So(err, ShouldBeNil)
			want, _ := EncodeCSV(NewGenerator(42, 0.3).Applicants(150))
			So(string(data), ShouldEqual, string(want))
		})

		Convey("Sessions see only their own dataset", func() {
			client := NewClient(srv.URL, 5*time.Second)
			_, err := client.Current(ctx, "never-uploaded")
			So(errors.Is(err, ErrUnexpectedStatus), ShouldBeTrue)
		})
	})

	Convey("Given a service that is down", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		Convey("The run stops at the health check", func() {
			_, _, err := Run(context.Background(), &Config{BaseURL: srv.URL, Sessions: 1, Rows: 5})
			So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
			So(errors.Is(err, ErrUnexpectedStatus), ShouldBeTrue)
		})
	})

	Convey("Given an invalid configuration", t, func() {
		_, _, err := Run(context.Background(), &Config{})
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
	})
}
