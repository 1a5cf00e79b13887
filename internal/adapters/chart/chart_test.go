package chart_test

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"math"
	"testing"

	"github.com/okian/review360/internal/adapters/chart"
	"github.com/okian/review360/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func decode(data []byte) (image.Image, error) {
	return png.Decode(bytes.NewReader(data))
}

func TestRadar(t *testing.T) {
	Convey("Given a renderer with a small canvas", t, func() {
		r := chart.New(chart.WithSize(300))
		So(r.Size(), ShouldEqual, 300)

		Convey("When a full matrix is drawn", func() {
			m, err := model.NewScoreMatrix(
				[]string{"Leadership", "Teamwork", "Adaptability", "Ethics and values"},
				[]string{"Self", "Direct manager", "Peers"},
				[][]float64{{4, 5, 3}, {2, 3, 3}, {5, 5, 4}, {1, 2, 2}},
			)
			So(err, ShouldBeNil)
			data, err := r.Radar(m)

			Convey("Then a decodable PNG of the configured size is returned", func() {
				So(err, ShouldBeNil)
				img, err := decode(data)
				So(err, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 300)
				So(img.Bounds().Dy(), ShouldEqual, 300)
			})
		})

		Convey("When scores fall outside the scale", func() {
			m, err := model.NewScoreMatrix([]string{"A", "B"}, []string{"X", "Y"},
				[][]float64{{-10, 99}, {math.NaN(), 3}})
			So(err, ShouldBeNil)
			_, err = r.Radar(m)

			Convey("Then they are clamped rather than rejected", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When the matrix is empty", func() {
			_, err := r.Radar(model.ScoreMatrix{})
			So(errors.Is(err, chart.ErrNoData), ShouldBeTrue)
		})
	})
}

func TestBars(t *testing.T) {
	Convey("Given a default renderer", t, func() {
		r := chart.New(chart.WithSize(10), chart.WithScale(5, 1))
		So(r.Size(), ShouldEqual, 800)

		Convey("When bars are drawn", func() {
			data, err := r.Bars("Standard deviation", []string{"Leadership", "Teamwork", "Ethics"}, []float64{0.5, 1.2, 0})

			Convey("Then a PNG is returned", func() {
				So(err, ShouldBeNil)
				img, err := decode(data)
				So(err, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 800)
			})
		})

		Convey("When every value is zero", func() {
			_, err := r.Bars("Variance", []string{"A", "B"}, []float64{0, 0})
			So(err, ShouldBeNil)
		})

		Convey("When there is nothing to draw", func() {
			_, err := r.Bars("Empty", nil, nil)
			So(errors.Is(err, chart.ErrNoData), ShouldBeTrue)
		})

		Convey("When labels and values disagree", func() {
			_, err := r.Bars("Broken", []string{"A", "B"}, []float64{1})
			So(errors.Is(err, chart.ErrInvalidInput), ShouldBeTrue)
		})
	})
}
