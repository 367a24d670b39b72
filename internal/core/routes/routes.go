package routes

import (
	"github.com/Archer-177/HighCostAtWork/internal/core/container"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterProtectedRoutes(router *gin.Engine, container *container.Container) {
	protectedRoutes := router.Group("")
	protectedRoutes.Use(container.Auth.JWTMiddleware())

	container.LocationHandler.RegisterRoutes(protectedRoutes)
	container.UserHandler.RegisterRoutes(protectedRoutes)
	container.DrugHandler.RegisterRoutes(protectedRoutes)
	container.StockHandler.RegisterRoutes(protectedRoutes)
	container.VialHandler.RegisterRoutes(protectedRoutes)
	container.TransferHandler.RegisterRoutes(protectedRoutes)
	container.AuditHandler.RegisterRoutes(protectedRoutes)
}

func RegisterUtilityRoutes(router *gin.Engine, container *container.Container) {
	router.GET("/health", container.Health.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(container.Registry, promhttp.HandlerOpts{})))
}
