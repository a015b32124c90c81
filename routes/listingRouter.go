package routes

import (
	"github.com/gin-gonic/gin"

	controller "github.com/dengelma9898/sharelocal-go/controllers"
	"github.com/dengelma9898/sharelocal-go/middleware"
)

func ListingRoute(router *gin.Engine) {
	// Browsing is public; logged-in users get the same data today but the
	// optional auth keeps room for personalisation.
	router.GET("/listings", middleware.OptionalAuthentication(), controller.GetListings())
	router.GET("/listings/:listing_id", middleware.OptionalAuthentication(), controller.GetListing())

	listingGroup := router.Group("/listings")
	listingGroup.Use(middleware.Authentication())
	{
		listingGroup.POST("", controller.CreateListing())
		listingGroup.PUT("/:listing_id", controller.UpdateListing())
		listingGroup.DELETE("/:listing_id", controller.DeleteListing())
		listingGroup.POST("/:listing_id/photo", controller.UploadListingPhoto())
	}
}
