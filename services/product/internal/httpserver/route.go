package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	ProductHandler *ProductHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	products := e.Group("/products")
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("/bulk", d.ProductHandler.BulkProducts)
	products.PATCH("/:id/stock", d.ProductHandler.AdjustStock)
}
