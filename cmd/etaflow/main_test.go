package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	service "github.com/okian/etaflow/internal/app"
	"github.com/okian/etaflow/internal/config"
	"github.com/okian/etaflow/internal/domain/present"
	"github.com/okian/etaflow/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseRow(t *testing.T) {
	Convey("Given CSV rows", t, func() {
		Convey("When only identifiers are given", func() {
			req, err := parseRow([]string{"d1", " l1 "})

			Convey("Then prompt and role stay empty for the pipeline to default", func() {
				So(err, ShouldBeNil)
				So(req, ShouldResemble, service.Request{DriverID: "d1", LoadID: "l1"})
			})
		})

		Convey("When all four fields are given", func() {
			req, err := parseRow([]string{"d1", "l1", "risk_assessment", "customer"})

			Convey("Then they are carried through", func() {
				So(err, ShouldBeNil)
				So(req.PromptType, ShouldEqual, present.PromptRiskAssessment)
				So(req.UserRole, ShouldEqual, present.RoleCustomer)
			})
		})

		Convey("When a row is malformed", func() {
			_, short := parseRow([]string{"d1"})
			_, empty := parseRow([]string{"", "l1"})

			Convey("Then it is rejected", func() {
				So(short, ShouldNotBeNil)
				So(empty, ShouldNotBeNil)
			})
		})
	})
}

func testCLI() *cli {
	return &cli{cfg: config.New(), log: logger.Discard()}
}

func TestBuildPipeline(t *testing.T) {
	Convey("Given the default config", t, func() {
		p, err := buildPipeline(context.Background(), config.New(), logger.Discard())
		So(err, ShouldBeNil)
		defer func() { _ = p.Close() }()

		Convey("Then every source is simulated and registered", func() {
			So(p.orch.GetStats()["sources"], ShouldHaveLength, 7)
		})
	})

	Convey("Given an override for an unknown source", t, func() {
		cfg := config.New()
		cfg.Sources = map[string]config.SourceConfig{"radar": {}}

		_, err := buildPipeline(context.Background(), cfg, logger.Discard())

		Convey("Then wiring fails", func() {
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestBatch(t *testing.T) {
	Convey("Given three CSV rows", t, func() {
		in := strings.NewReader("# driver,load\nd1,l1\nd2,l2,delay_explanation\nd3,l3,eta_estimate,driver\n")
		var out bytes.Buffer

		err := testCLI().batch(context.Background(), in, &out, 2, 1)

		Convey("Then one JSON line per row is printed", func() {
			So(err, ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			So(lines, ShouldHaveLength, 3)

			ids := map[string]bool{}
			for _, l := range lines {
				var bl struct {
					JobID  string `json:"jobId"`
					Result struct {
						Success bool `json:"success"`
					} `json:"result"`
				}
				So(json.Unmarshal([]byte(l), &bl), ShouldBeNil)
				So(bl.Result.Success, ShouldBeTrue)
				ids[bl.JobID] = true
			}
			So(ids, ShouldResemble, map[string]bool{"1": true, "2": true, "3": true})
		})
	})

	Convey("Given a row with an unknown role", t, func() {
		var out bytes.Buffer
		err := testCLI().batch(context.Background(), strings.NewReader("d1,l1,eta_estimate,auditor\n"), &out, 1, 4)

		Convey("Then the row fails and the batch reports it", func() {
			So(errors.Is(err, errRunFailed), ShouldBeTrue)
			So(out.String(), ShouldContainSubstring, "unknown user role")
		})
	})
}

func TestEstimateCommand(t *testing.T) {
	Convey("Given the estimate command", t, func() {
		_ = os.Unsetenv(config.EnvConfigPath)
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&bytes.Buffer{})

		Convey("When run for a driver and load", func() {
			root.SetArgs([]string{"estimate", "--driver", "d1", "--load", "l1", "--role", "driver"})
			err := root.ExecuteContext(context.Background())

			Convey("Then the result is printed as JSON", func() {
				So(err, ShouldBeNil)
				var res map[string]any
				So(json.Unmarshal(out.Bytes(), &res), ShouldBeNil)
				So(res["success"], ShouldEqual, true)
				So(res["runId"], ShouldNotBeEmpty)
			})
		})

		Convey("When the load flag is missing", func() {
			root.SetArgs([]string{"estimate", "--driver", "d1"})
			err := root.ExecuteContext(context.Background())

			Convey("Then cobra rejects it", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
