package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/reactor/sim/chemistry"
	"github.com/sarchlab/reactor/sim/depgraph"
	"github.com/sarchlab/reactor/sim/engine"
	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/timing"
)

type sampleEnvironment struct {
	Name  string
	Cells int
}

func (e *sampleEnvironment) Nodes() []model.Node                 { return nil }
func (e *sampleEnvironment) Neighborhood(model.Node) []model.Node { return nil }
func (e *sampleEnvironment) GlobalReactions() []model.Reaction    { return nil }
func (e *sampleEnvironment) IsTerminated() bool                   { return false }
func (e *sampleEnvironment) Bind(model.ChangeListener)            {}

var _ = Describe("Server", func() {
	var (
		mockCtrl   *gomock.Controller
		controller *MockController
		s          *Server
		handler    http.Handler
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		controller = NewMockController(mockCtrl)

		s = NewServer()
		s.RegisterEngine(controller)
		handler = s.Handler()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	serve := func(method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

		return rec
	}

	expectStatus := func(status engine.Status) {
		controller.EXPECT().Status().Return(status).AnyTimes()
		controller.EXPECT().Time().Return(timing.VTimeInSec(1.5)).AnyTimes()
		controller.EXPECT().Step().Return(uint64(3)).AnyTimes()
		controller.EXPECT().Error().Return(nil).AnyTimes()
	}

	decode := func(rec *httptest.ResponseRecorder) statusRsp {
		var rsp statusRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())

		return rsp
	}

	It("should report the status", func() {
		expectStatus(engine.StatusPaused)

		rec := serve(http.MethodGet, "/api/status")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode(rec)).To(Equal(statusRsp{
			Status: "paused",
			Time:   1.5,
			Step:   3,
		}))
	})

	It("should report the error of the simulation", func() {
		controller.EXPECT().Status().Return(engine.StatusTerminated)
		controller.EXPECT().Time().Return(timing.VTimeInSec(2))
		controller.EXPECT().Step().Return(uint64(4))
		controller.EXPECT().Error().Return(errors.New("boom"))

		rec := serve(http.MethodGet, "/api/status")

		Expect(decode(rec).Error).To(Equal("boom"))
	})

	It("should play, pause and terminate", func() {
		expectStatus(engine.StatusRunning)
		gomock.InOrder(
			controller.EXPECT().Play().Return(nil),
			controller.EXPECT().Pause().Return(nil),
			controller.EXPECT().Terminate().Return(nil),
		)

		Expect(serve(http.MethodPost, "/api/play").Code).
			To(Equal(http.StatusOK))
		Expect(serve(http.MethodPost, "/api/pause").Code).
			To(Equal(http.StatusOK))
		Expect(serve(http.MethodPost, "/api/terminate").Code).
			To(Equal(http.StatusOK))
	})

	It("should refuse to control a terminated simulation", func() {
		controller.EXPECT().Play().Return(engine.ErrTerminated)

		rec := serve(http.MethodPost, "/api/play")

		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("should go to a step", func() {
		expectStatus(engine.StatusRunning)
		controller.EXPECT().GoToStep(uint64(42)).Return(nil)

		Expect(serve(http.MethodPost, "/api/goto/step/42").Code).
			To(Equal(http.StatusOK))
	})

	It("should go to a time", func() {
		expectStatus(engine.StatusRunning)
		controller.EXPECT().GoToTime(timing.VTimeInSec(2.5)).Return(nil)

		Expect(serve(http.MethodPost, "/api/goto/time/2.5").Code).
			To(Equal(http.StatusOK))
	})

	It("should reject bad targets", func() {
		Expect(serve(http.MethodPost, "/api/goto/step/abc").Code).
			To(Equal(http.StatusBadRequest))
		Expect(serve(http.MethodPost, "/api/goto/time/-1").Code).
			To(Equal(http.StatusBadRequest))
		Expect(serve(http.MethodGet, "/api/wait/sleeping").Code).
			To(Equal(http.StatusBadRequest))
		Expect(serve(http.MethodGet, "/api/wait/paused?timeout=soon").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should wait for a status", func() {
		expectStatus(engine.StatusRunning)
		controller.EXPECT().
			WaitFor(engine.StatusPaused, 2*time.Second).
			Return(engine.StatusPaused)

		rec := serve(http.MethodGet, "/api/wait/Paused?timeout=2s")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode(rec).Status).To(Equal("paused"))
	})

	It("should dump an environment that is not running directly", func() {
		env := &sampleEnvironment{Name: "sample", Cells: 2}
		controller.EXPECT().Status().Return(engine.StatusInit)
		controller.EXPECT().Environment().Return(env)

		rec := serve(http.MethodGet, "/api/environment")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).ToNot(BeEmpty())
	})

	It("should dump a running environment on the simulation", func() {
		env := &sampleEnvironment{Name: "sample", Cells: 2}
		controller.EXPECT().Status().Return(engine.StatusRunning)
		controller.EXPECT().Environment().Return(env)
		controller.EXPECT().Schedule(gomock.Any()).
			DoAndReturn(func(cmd engine.Command) error {
				go func() {
					defer GinkgoRecover()
					Expect(cmd(nil)).To(Succeed())
				}()

				return nil
			})

		rec := serve(http.MethodGet, "/api/environment?depth=2")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).ToNot(BeEmpty())
	})

	It("should give up on a simulation that does not respond", func() {
		s.commandTimeout = 10 * time.Millisecond
		controller.EXPECT().Status().Return(engine.StatusPaused)
		controller.EXPECT().Schedule(gomock.Any()).Return(nil)

		rec := serve(http.MethodGet, "/api/environment")

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should reject a bad depth", func() {
		Expect(serve(http.MethodGet, "/api/environment?depth=-1").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should track steps with a progress bar", func() {
		s.WithTotalSteps(10)

		Expect(s.Initialized(nil)).To(Succeed())
		Expect(s.StepDone(nil, nil, 1, 0)).To(Succeed())
		Expect(s.StepDone(nil, nil, 2, 2)).To(Succeed())

		var bars []progressBarRsp
		rec := serve(http.MethodGet, "/api/progress")
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("steps"))
		Expect(bars[0].Total).To(Equal(uint64(10)))
		Expect(bars[0].Finished).To(Equal(uint64(3)))

		Expect(s.Finished(nil, 2, 3)).To(Succeed())

		rec = serve(http.MethodGet, "/api/progress")
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should report resources", func() {
		rec := serve(http.MethodGet, "/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("memory_size"))
	})

	It("should serve the dashboard", func() {
		rec := serve(http.MethodGet, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should not use reserved ports", func() {
		Expect(NewServer().WithPortNumber(80).portNumber).To(BeZero())
		Expect(NewServer().WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should listen on a random port", func() {
		expectStatus(engine.StatusReady)

		Expect(s.OpenBrowser()).To(HaveOccurred())
		Expect(s.StartServer()).To(Succeed())
		defer func() {
			Expect(s.StopServer(context.Background())).To(Succeed())
		}()

		Expect(s.URL()).To(HavePrefix("http://localhost:"))

		rsp, err := http.Get(s.URL() + "/api/status")
		Expect(err).ToNot(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})

var _ = Describe("Server with an engine", func() {
	It("should drive a simulation", func() {
		cfg := chemistry.DefaultColonyConfig()
		cfg.Seed = 1
		env := chemistry.NewColony(cfg)

		s := NewServer()
		e := engine.MakeBuilder().
			WithMonitor(s).
			Build(env, depgraph.New(env))
		s.RegisterEngine(e)
		handler := s.Handler()

		done := make(chan error, 1)
		go func() { done <- e.Run() }()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec,
			httptest.NewRequest(http.MethodPost, "/api/goto/step/5", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))

		Expect(e.WaitFor(engine.StatusPaused, 5*time.Second)).
			To(Equal(engine.StatusPaused))
		Expect(e.Step()).To(Equal(uint64(5)))

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec,
			httptest.NewRequest(http.MethodPost, "/api/terminate", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))

		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
	})
})
