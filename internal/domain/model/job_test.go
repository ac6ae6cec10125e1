package model_test

import (
	"testing"
	"time"

	document "github.com/okian/paperlens/internal/domain/document"
	model "github.com/okian/paperlens/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestAnalysisJob(t *testing.T) {
	convey.Convey("Given a new analysis job", t, func() {
		doc := document.File{Name: "paper.pdf", Data: []byte("%PDF-1.4")}
		before := time.Now()
		job := model.NewAnalysisJob("session-1", 7, doc)

		convey.Convey("Then it should carry the session, generation and file", func() {
			convey.So(job.ID, convey.ShouldNotBeEmpty)
			convey.So(job.SessionID, convey.ShouldEqual, "session-1")
			convey.So(job.Generation, convey.ShouldEqual, uint64(7))
			convey.So(job.Document.Name, convey.ShouldEqual, "paper.pdf")
			convey.So(job.Enqueued, convey.ShouldHappenOnOrAfter, before)
		})

		convey.Convey("Then two jobs should have distinct ids", func() {
			other := model.NewAnalysisJob("session-1", 7, doc)
			convey.So(other.ID, convey.ShouldNotEqual, job.ID)
		})

		convey.Convey("When measuring the wait", func() {
			convey.So(job.Wait(job.Enqueued.Add(time.Second)), convey.ShouldEqual, time.Second)
			convey.So(job.Wait(job.Enqueued.Add(-time.Second)), convey.ShouldEqual, time.Duration(0))
			convey.So(model.AnalysisJob{}.Wait(time.Now()), convey.ShouldEqual, time.Duration(0))
		})
	})
}
