package gateway

import (
	"net/http"

	"github.com/example/storefront/pkg/catalog"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) listCategories(c *gin.Context) {
	categories, err := g.services.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (g *Gateway) getCategory(c *gin.Context) {
	category, err := g.services.Catalog.GetCategory(c.Request.Context(), c.Param("slug"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// listProducts godoc
// @Summary List products
// @Tags catalog
// @Param category query string false "category slug"
// @Param search query string false "name or description contains"
// @Param trending query bool false "only trending"
// @Param bestseller query bool false "only bestsellers"
// @Param skin_type query string false "skin type"
// @Success 200 {array} productView
// @Router /products [get]
func (g *Gateway) listProducts(c *gin.Context) {
	filters := catalog.Filters{
		Category:   c.Query("category"),
		Search:     c.Query("search"),
		Trending:   c.Query("trending") == "true",
		Bestseller: c.Query("bestseller") == "true",
		SkinType:   c.Query("skin_type"),
	}
	products, err := g.services.Catalog.ListProducts(c.Request.Context(), filters)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProductViews(products))
}

func (g *Gateway) featuredProducts(c *gin.Context) {
	products, err := g.services.Catalog.FeaturedProducts(c.Request.Context(), catalog.DefaultFeaturedLimit)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProductViews(products))
}

func (g *Gateway) getProduct(c *gin.Context) {
	product, err := g.services.Catalog.GetProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProductView(*product))
}
