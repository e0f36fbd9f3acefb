package httpapi

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"air-quality-monitor/internal/airquality"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *airquality.Service, cities []string) {
	v1 := app.Group("/api/v1")

	v1.Get("/cities", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"cities": cities,
		})
	})

	v1.Get("/airquality/measurements", func(c *fiber.Ctx) error {
		city, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		dataset, err := service.Dataset(c.UserContext(), city)
		if err != nil {
			return fetchErrorToHTTP(city, err)
		}

		return c.JSON(dataset)
	})

	v1.Get("/airquality/summary", func(c *fiber.Ctx) error {
		city, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		dataset, err := service.Dataset(c.UserContext(), city)
		if err != nil {
			return fetchErrorToHTTP(city, err)
		}

		return c.JSON(airquality.Summarize(city, dataset.Table))
	})

	v1.Get("/airquality/export", func(c *fiber.Ctx) error {
		city, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		dataset, err := service.Dataset(c.UserContext(), city)
		if err != nil {
			return fetchErrorToHTTP(city, err)
		}

		return writeCSV(c, city, dataset.Table)
	})
}

// cityQuery holds the query parameter identifying the requested city.
type cityQuery struct {
	City string `validate:"required"`
}

func parseCityQuery(c *fiber.Ctx) (string, error) {
	q := cityQuery{City: strings.TrimSpace(c.Query("city"))}

	if err := validate.Struct(q); err != nil {
		return "", err
	}
	return q.City, nil
}

// fetchErrorToHTTP maps the fetch error taxonomy onto HTTP statuses. The
// messages stay generic; configuration problems in particular must never
// echo credential material.
func fetchErrorToHTTP(city string, err error) error {
	switch airquality.KindOf(err) {
	case airquality.KindEmptyResult:
		return fiber.NewError(fiber.StatusNotFound,
			fmt.Sprintf("no air quality data found for %s; try another location", city))
	case airquality.KindConfig:
		return fiber.NewError(fiber.StatusInternalServerError,
			"air quality service is not configured; check the server environment")
	case airquality.KindTransport:
		return fiber.NewError(fiber.StatusBadGateway,
			"failed to fetch data from the air quality service")
	case airquality.KindMalformedResponse:
		return fiber.NewError(fiber.StatusBadGateway,
			"air quality service returned an unexpected response")
	default:
		return fiber.NewError(fiber.StatusInternalServerError,
			"failed to fetch air quality data")
	}
}
