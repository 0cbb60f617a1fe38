package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/plotpath/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewTask(t *testing.T) {
	Convey("Given two tasks for the same pair", t, func() {
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		a := model.NewTask("acme", "culture", "look at reviews", now)
		b := model.NewTask("acme", "culture", "look at reviews", now)

		Convey("They get distinct valid ids", func() {
			_, err := uuid.Parse(a.ID)
			So(err, ShouldBeNil)
			So(a.ID, ShouldNotEqual, b.ID)
		})

		Convey("They share the in-flight key", func() {
			So(a.Key(), ShouldEqual, b.Key())
			So(a.Key(), ShouldEqual, model.TaskKey("acme", "culture"))
			So(model.TaskKey("ac", "meculture"), ShouldNotEqual, a.Key())
		})

		Convey("Fields are carried through", func() {
			So(a.Entity, ShouldEqual, "acme")
			So(a.Factor, ShouldEqual, "culture")
			So(a.Instructions, ShouldEqual, "look at reviews")
			So(a.RequestedAt, ShouldEqual, now)
		})
	})
}
