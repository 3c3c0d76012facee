package main

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func echoMetrics() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
