package particles

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/san-kum/attractors/internal/dynamo"
	"github.com/san-kum/attractors/internal/emitter"
	"github.com/san-kum/attractors/internal/history"
	"github.com/san-kum/attractors/internal/integrators"
	"github.com/san-kum/attractors/internal/metrics"
	"github.com/san-kum/attractors/internal/render"
	"github.com/san-kum/attractors/internal/stepper"
	"github.com/san-kum/attractors/internal/stepthread"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

// drift moves in a straight line, so every sample is distinct.
type drift struct{}

func (drift) Derive(dynamo.State, float64) dynamo.State { return dynamo.State{1, 2, 3} }
func (drift) StateDim() int                             { return 3 }

// beNear matches a vector component by component.
func beNear(v mgl64.Vec3) types.GomegaMatcher {
	return HaveExactElements(
		BeNumerically("~", v[0], 1e-9),
		BeNumerically("~", v[1], 1e-9),
		BeNumerically("~", v[2], 1e-9),
	)
}

func driftFactory() stepthread.Factory {
	return func() (*stepper.Stepper, error) {
		return stepper.New(drift{}, integrators.NewEuler(), dynamo.State{0, 0, 0}, stepper.Config{Dt: 0.001})
	}
}

var errBoom = errors.New("boom")

var _ = Describe("System", func() {
	var (
		sys *System
		ctx *render.Context
		rec *render.Recorders
		m   *metrics.Metrics
	)

	BeforeEach(func() {
		ctx, rec = render.NewRecordingContext(800, 600)
		m = metrics.New(prometheus.NewRegistry())
		sys = New(ctx, Config{
			Logger:   zaptest.NewLogger(GinkgoT()),
			Metrics:  m,
			Stepper:  driftFactory(),
			Settings: emitter.Settings{Size: 1000},
		})
		DeferCleanup(sys.Close)
	})

	Describe("BuildEmitter", func() {
		It("starts a thread whose first sample is already visible", func() {
			Expect(sys.BuildEmitter(emitter.Static)).To(Succeed())

			Expect(sys.Thread().State()).To(Equal(stepthread.Running))
			Expect(sys.Buffer().Len()).To(BeNumerically(">=", 1))
			engine, ok := sys.Engine()
			Expect(ok).To(BeTrue())
			Expect(engine).To(Equal(emitter.Static))
			Expect(testutil.ToFloat64(m.EmitterBuilds.WithLabelValues("static"))).To(Equal(1.0))
		})

		It("refuses a second emitter", func() {
			Expect(sys.BuildEmitter(emitter.Static)).To(Succeed())
			Expect(sys.BuildEmitter(emitter.Transformed)).To(MatchError(ErrEmitterExists))
		})

		It("leaves nothing running when the stepper cannot be built", func() {
			Expect(sys.SetStepper(func() (*stepper.Stepper, error) { return nil, errBoom })).To(Succeed())

			Expect(sys.BuildEmitter(emitter.Static)).To(MatchError(errBoom))
			_, ok := sys.Engine()
			Expect(ok).To(BeFalse())
			Expect(sys.Thread().State()).To(Equal(stepthread.Stopped))

			_, err := sys.RenderSingle()
			Expect(err).To(MatchError(ErrNoEmitter))
		})

		It("rejects invalid settings", func() {
			Expect(sys.SetSettings(emitter.Settings{Size: 0})).To(MatchError(emitter.ErrInvalidSize))
		})
	})

	Describe("ChangeEmitter", func() {
		It("carries size, stop-full and restart over to the new engine", func() {
			Expect(sys.SetSettings(emitter.Settings{Size: 500, StopFull: true, RestartFull: false})).To(Succeed())
			Expect(sys.BuildEmitter(emitter.Static)).To(Succeed())

			Expect(sys.ChangeEmitter(emitter.Transformed)).To(Succeed())

			engine, _ := sys.Engine()
			Expect(engine).To(Equal(emitter.Transformed))
			Expect(sys.Settings()).To(Equal(emitter.Settings{Size: 500, StopFull: true, RestartFull: false}))
			Expect(sys.Buffer().Capacity()).To(Equal(500))
			Expect(sys.Buffer().Policy()).To(Equal(history.StopWhenFull))
			Eventually(sys.Thread().Halted).Should(BeTrue())
			Expect(sys.Buffer().Written()).To(Equal(uint64(500)))
		})

		It("binds a fresh ring and retires the old one", func() {
			Expect(sys.BuildEmitter(emitter.Static)).To(Succeed())
			old := sys.Buffer()

			Expect(sys.ChangeEmitter(emitter.Transformed)).To(Succeed())
			Expect(sys.Buffer()).NotTo(BeIdenticalTo(old))

			written := old.Written()
			Consistently(old.Written, 50*time.Millisecond, 5*time.Millisecond).Should(Equal(written))
		})
	})

	Describe("SetSettings", func() {
		It("resizes a running emitter through stop and rebuild", func() {
			Expect(sys.SetSettings(emitter.Settings{Size: 64})).To(Succeed())
			Expect(sys.BuildEmitter(emitter.Transformed)).To(Succeed())
			old := sys.Buffer()
			Expect(old.Capacity()).To(Equal(64))

			want := emitter.Settings{Size: 32, RestartFull: true}
			Expect(sys.SetSettings(want)).To(Succeed())

			ring := sys.Buffer()
			Expect(ring).NotTo(BeIdenticalTo(old))
			Expect(ring.Capacity()).To(Equal(32))
			Expect(ring.Policy()).To(Equal(history.Overwrite))
			Expect(sys.Settings()).To(Equal(want))
			Expect(sys.Thread().State()).To(Equal(stepthread.Running))
			engine, _ := sys.Engine()
			Expect(engine).To(Equal(emitter.Transformed))

			written := old.Written()
			Consistently(old.Written, 50*time.Millisecond, 5*time.Millisecond).Should(Equal(written))
			Eventually(ring.Written).Should(BeNumerically(">", 32))
		})
	})

	Describe("DeleteEmitter", func() {
		It("stops all appends", func() {
			Expect(sys.BuildEmitter(emitter.Static)).To(Succeed())
			ring := sys.Buffer()
			Eventually(ring.Written).Should(BeNumerically(">", 100))

			Expect(sys.DeleteEmitter()).To(Succeed())
			written := ring.Written()
			Consistently(ring.Written, 100*time.Millisecond, 5*time.Millisecond).Should(Equal(written))
			Expect(sys.Thread().State()).To(Equal(stepthread.Stopped))

			_, err := sys.RenderSingle()
			Expect(err).To(MatchError(ErrNoEmitter))
			_, err = sys.RenderTF()
			Expect(err).To(MatchError(ErrNoEmitter))
		})

		It("is a no-op without an emitter", func() {
			Expect(sys.DeleteEmitter()).To(Succeed())
		})
	})

	Describe("SetStepper", func() {
		It("restarts a live emitter on the new trajectory", func() {
			Expect(sys.BuildEmitter(emitter.Transformed)).To(Succeed())
			old := sys.Buffer()

			Expect(sys.SetStepper(driftFactory())).To(Succeed())
			Expect(sys.Buffer()).NotTo(BeIdenticalTo(old))
			Expect(sys.Thread().State()).To(Equal(stepthread.Running))
			engine, _ := sys.Engine()
			Expect(engine).To(Equal(emitter.Transformed))
		})
	})

	Describe("OnReshape", func() {
		BeforeEach(func() {
			sys.TakeUpdate()
		})

		It("ignores zero dimensions", func() {
			sys.OnReshape(0, 300)
			sys.OnReshape(300, 0)

			Expect(sys.TakeUpdate()).To(BeFalse())
			w, h := sys.Size()
			Expect([]int{w, h}).To(Equal([]int{800, 600}))
			for _, r := range rec.All() {
				Expect(r.Count("resize")).To(Equal(1), r.Name)
			}
		})

		It("resizes every pass and sets the aspect ratio", func() {
			sys.OnReshape(1024, 512)

			Expect(sys.TakeUpdate()).To(BeTrue())
			Expect(ctx.Main.Aspect).To(BeNumerically("~", 2.0, 1e-12))
			for _, r := range rec.All() {
				c, ok := r.Last("resize")
				Expect(ok).To(BeTrue(), r.Name)
				Expect([]int{c.W, c.H}).To(Equal([]int{1024, 512}), r.Name)
			}
		})
	})

	Describe("RenderSingle", func() {
		BeforeEach(func() {
			Expect(sys.BuildEmitter(emitter.Static)).To(Succeed())
		})

		It("runs particles, glow and FXAA in point mode", func() {
			tex, err := sys.RenderSingle()
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.Points.Count("render")).To(Equal(1))
			Expect(rec.PointGlow.Count("apply")).To(Equal(1))
			Expect(rec.PointFXAA.Count("apply")).To(Equal(1))
			Expect(rec.Billboard.Count("render")).To(Equal(0))
			Expect(rec.Merge.Count("merge")).To(Equal(0))

			call, _ := rec.Points.Last("render")
			Expect(call.Particles).To(BeNumerically(">", 0))
			Expect(call.Viewport).To(Equal(render.FullViewport(800, 600)))

			fxaa, _ := rec.PointFXAA.Last("apply")
			Expect(tex).To(Equal(fxaa.Out))
			Expect(testutil.ToFloat64(m.Frames.WithLabelValues("single"))).To(Equal(1.0))
		})

		It("uses the billboard pipeline in billboard mode", func() {
			sys.SetMode(render.Billboard)
			_, err := sys.RenderSingle()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Billboard.Count("render")).To(Equal(1))
			Expect(rec.Points.Count("render")).To(Equal(0))
		})

		It("renders both shapes from one set and merges them in dual mode", func() {
			sys.SetMode(render.Both)
			tex, err := sys.RenderSingle()
			Expect(err).NotTo(HaveOccurred())

			bb, _ := rec.Billboard.Last("render")
			pt, _ := rec.Points.Last("render")
			Expect(bb.Particles).To(Equal(pt.Particles))

			bbGlow, _ := rec.BillboardGlow.Last("apply")
			ptGlow, _ := rec.PointGlow.Last("apply")
			merge, ok := rec.Merge.Last("merge")
			Expect(ok).To(BeTrue())
			Expect(merge.In).To(Equal([]render.Texture{bbGlow.Out, ptGlow.Out}))
			Expect(tex).To(Equal(merge.Out))
		})
	})

	Describe("RenderTF", func() {
		BeforeEach(func() {
			Expect(sys.SetSettings(emitter.Settings{Size: 10, StopFull: true})).To(Succeed())
			Expect(sys.BuildEmitter(emitter.Static)).To(Succeed())
			Eventually(sys.Thread().Halted).Should(BeTrue())
		})

		DescribeTable("places the camera on the clamped tail sample",
			func(tail float64, behind int) {
				cp := render.DefaultTFSettings()
				cp.Tail = tail
				Expect(sys.SetCockpit(cp)).To(Succeed())

				_, err := sys.RenderTF()
				Expect(err).NotTo(HaveOccurred())

				ring := sys.Buffer()
				head, _ := ring.Current()
				tailSample, _ := ring.At(behind)
				call, ok := rec.Points.Last("render")
				Expect(ok).To(BeTrue())
				Expect(call.View.POV[:]).To(beNear(tailSample.Vec3()), "pov")
				Expect(call.View.Target[:]).To(beNear(head.Vec3()), "target")
			},
			Entry("tail 0 clamps to one behind", 0.0, 1),
			Entry("tail 0.5", 0.5, 5),
			Entry("tail 1 is the oldest", 1.0, 9),
		)

		It("looks from head to tail when the view is inverted", func() {
			cp := render.DefaultTFSettings()
			cp.Tail = 1
			cp.InvertView = true
			Expect(sys.SetCockpit(cp)).To(Succeed())
			_, err := sys.RenderTF()
			Expect(err).NotTo(HaveOccurred())

			ring := sys.Buffer()
			head, _ := ring.Current()
			call, _ := rec.Points.Last("render")
			Expect(call.View.POV[:]).To(beNear(head.Vec3()))
		})

		It("adds a picture-in-picture of the main view", func() {
			cp := render.DefaultTFSettings()
			cp.PiP = render.PiPLowerRight
			Expect(sys.SetCockpit(cp)).To(Succeed())

			_, err := sys.RenderTF()
			Expect(err).NotTo(HaveOccurred())

			calls := rec.Points.Calls()
			var renders []render.Call
			for _, c := range calls {
				if c.Op == "render" {
					renders = append(renders, c)
				}
			}
			Expect(renders).To(HaveLen(2))
			Expect(renders[0].Viewport).To(Equal(render.FullViewport(800, 600)))
			Expect(renders[1].Viewport).To(Equal(cp.Viewport(800, 600)))
			Expect(renders[1].View.POV).To(Equal(ctx.Main.POV))
			Expect(rec.PointGlow.Count("apply")).To(Equal(2))
			Expect(rec.PointFXAA.Count("apply")).To(Equal(1))
		})

		It("swaps the views with InvertPiP", func() {
			cp := render.DefaultTFSettings()
			cp.PiP = render.PiPUpperLeft
			cp.InvertPiP = true
			Expect(sys.SetCockpit(cp)).To(Succeed())

			_, err := sys.RenderTF()
			Expect(err).NotTo(HaveOccurred())
			first := rec.Points.Calls()
			var full render.Call
			for _, c := range first {
				if c.Op == "render" {
					full = c
					break
				}
			}
			Expect(full.View.POV).To(Equal(ctx.Main.POV))
		})

		It("raises the update flag", func() {
			sys.TakeUpdate()
			_, err := sys.RenderTF()
			Expect(err).NotTo(HaveOccurred())
			Expect(sys.TakeUpdate()).To(BeTrue())
			Expect(testutil.ToFloat64(m.Frames.WithLabelValues("cockpit"))).To(Equal(1.0))
		})

		It("rejects invalid cockpit settings", func() {
			cp := render.DefaultTFSettings()
			cp.Tail = 2
			Expect(sys.SetCockpit(cp)).To(MatchError(render.ErrInvalidTF))
		})
	})

	Describe("concurrent rendering", func() {
		It("never observes a half-built emitter", func() {
			Expect(sys.BuildEmitter(emitter.Static)).To(Succeed())

			var done atomic.Bool
			var frames atomic.Int64
			var g errgroup.Group
			g.Go(func() error {
				for !done.Load() {
					if _, err := sys.RenderSingle(); err != nil {
						return err
					}
					frames.Add(1)
				}
				return nil
			})

			Eventually(frames.Load).Should(BeNumerically(">", 0))

			engines := []emitter.Engine{emitter.Transformed, emitter.Static}
			for i := 0; i < 20; i++ {
				Expect(sys.ChangeEmitter(engines[i%2])).To(Succeed())
			}
			done.Store(true)

			Expect(g.Wait()).To(Succeed())
		})
	})
})
