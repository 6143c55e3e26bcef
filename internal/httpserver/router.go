package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	Auth      *AuthHTTP
	Catalog   *CatalogHTTP
	Cart      *CartHTTP
	Favorites *FavoritesHTTP
	Recommend *RecommendHTTP
	Assistant *AssistantHTTP
	Search    *SearchHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/auth/register", d.Auth.Register)
	e.POST("/auth/login", d.Auth.Login)

	products := e.Group("/products")
	products.GET("", d.Catalog.ListProducts)
	products.GET("/mine", d.Catalog.MyProducts)
	products.POST("", d.Catalog.CreateProduct)
	products.GET("/:id", d.Catalog.GetProduct)
	products.PATCH("/:id", d.Catalog.PatchProduct)
	products.DELETE("/:id", d.Catalog.DeleteProduct)
	products.GET("/:id/similar", d.Recommend.Similar)
	products.POST("/:id/favorite", d.Favorites.Toggle)

	e.GET("/wishlist", d.Favorites.Wishlist)
	e.GET("/search", d.Search.Search)

	cart := e.Group("/cart")
	cart.GET("", d.Cart.ViewCart)
	cart.POST("", d.Cart.AddToCart)
	cart.DELETE("/:product_id", d.Cart.RemoveFromCart)
	cart.POST("/:product_id/quantity", d.Cart.UpdateQuantity)
	cart.POST("/checkout", d.Cart.Checkout)
	cart.GET("/receipt", d.Cart.Receipt)

	ai := e.Group("/ai")
	ai.POST("/chat", d.Assistant.Chat)
	ai.POST("/price_suggest", d.Assistant.SuggestPrice)
}
