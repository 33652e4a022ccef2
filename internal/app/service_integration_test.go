package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	service "github.com/okian/fairlens/internal/app"
	"github.com/okian/fairlens/internal/adapters/repository"
	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

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

func upload(session string) service.Upload {
	return service.Upload{
		SessionID:   session,
		Filename:    "applicants.csv",
		ContentType: "text/csv",
		Payload:     []byte(applicantsCSV),
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithDedupeSize(100),
			service.WithAnalysisTimeout(5*time.Second),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a session uploads a CSV file", func() {
			sub, err := svc.Submit(ctx, upload("alpha"))
			So(err, ShouldBeNil)
			So(sub.Duplicate, ShouldBeFalse)
			So(sub.Job.ID, ShouldNotBeEmpty)
			So(sub.Job.SessionID, ShouldEqual, "alpha")
			So(string(sub.Format), ShouldEqual, "csv")

			st, err := svc.Wait(ctx, "alpha", sub.Job.ID)
			So(err, ShouldBeNil)

			Convey("Then the job should finish with a dataset", func() {
				So(st.State, ShouldEqual, model.JobDone)
				So(st.Progress, ShouldEqual, 100)
				So(st.DatasetID, ShouldNotBeEmpty)
			})

			Convey("And the snapshot should describe the file", func() {
				ds, err := svc.Current(ctx, "alpha")
				So(err, ShouldBeNil)
				So(ds.ID, ShouldEqual, st.DatasetID)
				So(ds.RowCount, ShouldEqual, 8)
				So(ds.ColumnCount, ShouldEqual, 6)
				So(ds.Headers, ShouldResemble, []string{"name", "age", "gender", "race", "income", "hired"})
				So(len(ds.Preview), ShouldEqual, 5)
				So(ds.AIConfidence, ShouldEqual, 0.94)
			})

			Convey("And protected attributes should be included by default", func() {
				cols, err := svc.Attributes(ctx, "alpha")
				So(err, ShouldBeNil)
				included := map[string]bool{}
				for _, c := range cols {
					included[c.Name] = c.Included
				}
				So(included, ShouldResemble, map[string]bool{
					"name": false, "age": true, "gender": true,
					"race": true, "income": true, "hired": false,
				})
			})

			Convey("And a column can be excluded from the analysis", func() {
				col, err := svc.SetInclusion(ctx, "alpha", "income", false)
				So(err, ShouldBeNil)
				So(col.Included, ShouldBeFalse)

				ds, err := svc.Current(ctx, "alpha")
				So(err, ShouldBeNil)
				c, _, ok := ds.Column("income")
				So(ok, ShouldBeTrue)
				So(c.Included, ShouldBeFalse)

				_, err = svc.SetInclusion(ctx, "alpha", "missing", true)
				So(errors.Is(err, repository.ErrUnknownColumn), ShouldBeTrue)
			})

			Convey("And the selection rate check should flag the gender gap", func() {
				r, err := svc.SelectionRates(ctx, "alpha", "gender", "hired", fairness.DefaultThreshold)
				So(err, ShouldBeNil)
				So(r.Considered, ShouldEqual, 8)
				So(len(r.Groups), ShouldEqual, 2)
				So(r.Groups[0].Group, ShouldEqual, "Female")
				So(r.Groups[0].Rate, ShouldAlmostEqual, 0.5)
				So(r.Groups[1].Rate, ShouldAlmostEqual, 0.75)
				So(r.ParityGap, ShouldAlmostEqual, 0.25)
				So(r.Status, ShouldEqual, fairness.StatusViolation)

				_, err = svc.SelectionRates(ctx, "alpha", "gender", "nope", fairness.DefaultThreshold)
				So(errors.Is(err, fairness.ErrUnknownColumn), ShouldBeTrue)
			})

			Convey("And other sessions should not see it", func() {
				_, err := svc.Current(ctx, "beta")
				So(errors.Is(err, repository.ErrNoDataset), ShouldBeTrue)

				_, err = svc.Job(ctx, "beta", sub.Job.ID)
				So(errors.Is(err, repository.ErrJobNotFound), ShouldBeTrue)

				_, err = svc.Wait(ctx, "beta", sub.Job.ID)
				So(errors.Is(err, repository.ErrJobNotFound), ShouldBeTrue)
			})

			Convey("And clearing the session should drop the dataset", func() {
				So(svc.Clear(ctx, "alpha"), ShouldBeNil)
				_, err := svc.Current(ctx, "alpha")
				So(errors.Is(err, repository.ErrNoDataset), ShouldBeTrue)
			})
		})

		Convey("When the same upload is retried with an idempotency key", func() {
			u := upload("alpha")
			u.IdempotencyKey = "retry-1"

			first, err := svc.Submit(ctx, u)
			So(err, ShouldBeNil)
			second, err := svc.Submit(ctx, u)
			So(err, ShouldBeNil)

			Convey("Then the retry should return the original job", func() {
				So(second.Duplicate, ShouldBeTrue)
				So(second.Job.ID, ShouldEqual, first.Job.ID)
			})

			Convey("And the same key in another session should be independent", func() {
				other := u
				other.SessionID = "beta"
				third, err := svc.Submit(ctx, other)
				So(err, ShouldBeNil)
				So(third.Duplicate, ShouldBeFalse)
				So(third.Job.ID, ShouldNotEqual, first.Job.ID)
			})
		})

		Convey("When a session edits its metric selection", func() {
			sel, err := svc.Selection(ctx, "alpha")
			So(err, ShouldBeNil)
			So(sel, ShouldResemble, fairness.DefaultSelection())

			sel, on, err := svc.ToggleMetric(ctx, "alpha", fairness.DimensionGroup, "equal_opportunity")
			So(err, ShouldBeNil)
			So(on, ShouldBeTrue)
			So(sel[fairness.DimensionGroup], ShouldContain, "equal_opportunity")

			Convey("Then the bias report should carry the selection", func() {
				r, err := svc.BiasReport(ctx, "alpha")
				So(err, ShouldBeNil)
				So(r.OverallScore, ShouldEqual, 76)
				So(r.Selection[fairness.DimensionGroup], ShouldContain, "equal_opportunity")
			})

			Convey("And unknown metrics should be rejected", func() {
				_, _, err := svc.ToggleMetric(ctx, "alpha", fairness.DimensionGroup, "nope")
				So(errors.Is(err, fairness.ErrUnknownMetric), ShouldBeTrue)
			})
		})

		Convey("When a session uploads twice in a row", func() {
			first, err := svc.Submit(ctx, upload("gamma"))
			So(err, ShouldBeNil)

			next := upload("gamma")
			next.Filename = "second.csv"
			second, err := svc.Submit(ctx, next)
			So(err, ShouldBeNil)

			_, _ = svc.Wait(ctx, "gamma", first.Job.ID)
			st, err := svc.Wait(ctx, "gamma", second.Job.ID)
			So(err, ShouldBeNil)

			Convey("Then the newest upload should own the snapshot", func() {
				So(st.State, ShouldEqual, model.JobDone)
				ds, err := svc.Current(ctx, "gamma")
				So(err, ShouldBeNil)
				So(ds.Filename, ShouldEqual, "second.csv")
			})
		})

		Convey("When many sessions upload concurrently", func() {
			const sessions = 20
			var wg sync.WaitGroup
			errs := make(chan error, sessions)
			for i := 0; i < sessions; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					id := fmt.Sprintf("session-%d", i)
					sub, err := svc.Submit(ctx, upload(id))
					if err != nil {
						errs <- err
						return
					}
					if _, err := svc.Wait(ctx, id, sub.Job.ID); err != nil {
						errs <- err
					}
				}(i)
			}
			wg.Wait()
			close(errs)

			Convey("Then every session should hold its own dataset", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				for i := 0; i < sessions; i++ {
					ds, err := svc.Current(ctx, fmt.Sprintf("session-%d", i))
					So(err, ShouldBeNil)
					So(ds.RowCount, ShouldEqual, 8)
				}
				So(svc.GetStats()["sessions"], ShouldEqual, sessions)
			})
		})
	})
}

func largeCSV(rows int) []byte {
	var b strings.Builder
	b.WriteString("id,age,gender,score\n")
	for i := 0; i < rows; i++ {
		gender := "Male"
		if i%2 == 0 {
			gender = "Female"
		}
		fmt.Fprintf(&b, "%d,%d,%s,%d\n", i, 20+i%40, gender, i%100)
	}
	return []byte(b.String())
}

func TestServiceBackpressure(t *testing.T) {
	Convey("Given a service with one worker and a one-slot queue", t, func() {
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
			service.WithAnalysisTimeout(time.Minute),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		payload := largeCSV(200_000)
		big := func(session, key string) service.Upload {
			return service.Upload{
				SessionID:      session,
				Filename:       "big.csv",
				ContentType:    "text/csv",
				Payload:        payload,
				IdempotencyKey: key,
			}
		}

		Convey("When uploads outpace the worker", func() {
			var accepted []service.Submission
			var rejected error
			var rejectedSession string
			for i := 0; i < 10 && rejected == nil; i++ {
				session := fmt.Sprintf("busy-%d", i)
				sub, err := svc.Submit(ctx, big(session, "upload-1"))
				if err != nil {
					rejected, rejectedSession = err, session
					break
				}
				accepted = append(accepted, sub)
			}

			Convey("Then the overflow upload is refused with backpressure", func() {
				So(rejected, ShouldNotBeNil)
				So(errors.Is(rejected, service.ErrBackpressure), ShouldBeTrue)
			})

			Convey("And the refused upload leaves no job behind", func() {
				So(svc.GetStats()["jobsTracked"], ShouldEqual, len(accepted))
				So(svc.GetStats()["idempotencyKeys"], ShouldEqual, len(accepted))
			})

			Convey("And retrying with the same key is a fresh upload", func() {
				for _, sub := range accepted {
					_, err := svc.Wait(ctx, sub.Job.SessionID, sub.Job.ID)
					So(err, ShouldBeNil)
				}

				retry, err := svc.Submit(ctx, big(rejectedSession, "upload-1"))
				So(err, ShouldBeNil)
				So(retry.Duplicate, ShouldBeFalse)

				_, err = svc.Job(ctx, rejectedSession, retry.Job.ID)
				So(err, ShouldBeNil)
				So(svc.GetStats()["jobsTracked"], ShouldEqual, len(accepted)+1)
			})
		})
	})
}
