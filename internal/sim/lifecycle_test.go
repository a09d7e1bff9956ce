package sim

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/ballsim/internal/ball"
	"gonum.org/v1/gonum/spatial/r2"
)

var _ = Describe("Engine lifecycle", func() {
	var e *Engine

	BeforeEach(func() {
		e = New(WithTimeStep(0.01))
		DeferCleanup(e.Close)
	})

	Context("when stopped", func() {
		It("applies additions and removals immediately", func() {
			id := e.AddBall(r2.Vec{X: 1, Y: 1})
			Expect(e.IDs()).To(ContainElement(id))

			e.RemoveBall(id)
			Expect(e.IDs()).NotTo(ContainElement(id))
		})

		It("treats a second stop as a no-op", func() {
			e.Stop()
			e.Stop()
			Expect(e.Running()).To(BeFalse())
			Expect(e.Ticks()).To(BeZero())
		})
	})

	Context("when running", func() {
		BeforeEach(func() {
			e.Start()
		})

		It("keeps ticking until stopped", func() {
			t0 := e.Ticks()
			Eventually(e.Ticks).Should(BeNumerically(">", t0+5))
		})

		It("ignores a second start", func() {
			e.Start()
			Expect(e.Running()).To(BeTrue())
		})

		It("queues removals and applies them on the next drain", func() {
			victim := e.IDs()[0]
			e.RemoveBall(victim)
			Eventually(e.IDs).ShouldNot(ContainElement(victim))
		})

		It("reports vanished balls as unknown", func() {
			id := e.AddBall(r2.Vec{X: 50, Y: 50})
			e.RemoveBall(id)
			Eventually(func() error { return e.MoveBall(id, r2.Vec{}) }).Should(MatchError(ErrUnknownEntity))
		})

		It("leaves every ball at rest and the loop idle after stop", func() {
			Eventually(func() float64 {
				var sum float64
				for _, b := range e.Balls() {
					sum += b.Speed2()
				}
				return sum
			}).Should(BeNumerically(">", 0))

			e.Stop()

			Expect(e.Balls()).To(HaveEach(HaveField("Velocity", Equal(r2.Vec{}))))
			ticks := e.Ticks()
			Consistently(e.Ticks, 30*time.Millisecond).Should(Equal(ticks))
		})

		It("resumes from rest after a restart", func() {
			e.Stop()
			before := e.Ticks()
			e.Start()
			Eventually(e.Ticks).Should(BeNumerically(">", before))
		})

		It("applies a new time step on later ticks", func() {
			Expect(e.SetTimeStep(0.5)).To(Succeed())
			Expect(e.TimeStep()).To(Equal(0.5))
			before := e.Ticks()
			Eventually(e.Ticks).Should(BeNumerically(">", before+1))
			Expect(e.TimeStep()).To(Equal(0.5))
		})
	})

	It("never hands out the nil id", func() {
		for i := 0; i < 50; i++ {
			Expect(e.AddBall(r2.Vec{X: float64(i)})).NotTo(Equal(ball.Nil))
		}
	})
})
