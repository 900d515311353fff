package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type Resource string

const (
	ResourceProducts            Resource = "products"
	ResourceBrands              Resource = "brands"
	ResourceCategories          Resource = "categories"
	ResourceCartridgeProducts   Resource = "cartridge_products"
	ResourceCartridgeBrands     Resource = "cartridge_brands"
	ResourceCartridgeCategories Resource = "cartridge_categories"
	ResourceCart                Resource = "cart"
	ResourceCartItems           Resource = "cart_items"
	ResourceCartClear           Resource = "cart_clear"
	ResourceGuestOrder          Resource = "guest_order"
	ResourceOrderFromCart       Resource = "order_from_cart"
	ResourceMyOrders            Resource = "my_orders"
	ResourceLogin               Resource = "login"
	ResourceDistributorLogin    Resource = "distributor_login"
	ResourceDistributorRegister Resource = "distributor_register"
)

var paths = map[Resource]string{
	ResourceProducts:            "/software/products",
	ResourceBrands:              "/software/brands",
	ResourceCategories:          "/software/categories",
	ResourceCartridgeProducts:   "/cartridge/products",
	ResourceCartridgeBrands:     "/cartridge/brands",
	ResourceCartridgeCategories: "/cartridge/categories",
	ResourceCart:                "/cart",
	ResourceCartItems:           "/cart/items",
	ResourceCartClear:           "/cart/clear",
	ResourceGuestOrder:          "/orders/guest",
	ResourceOrderFromCart:       "/orders/from-cart",
	ResourceMyOrders:            "/orders/my-orders",
	ResourceLogin:               "/auth/login",
	ResourceDistributorLogin:    "/distributors/login",
	ResourceDistributorRegister: "/distributors/register",
}

// Endpoints resolves resources to absolute URLs under one API base.
type Endpoints struct {
	base string
}

func NewEndpoints(baseURL string) (Endpoints, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return Endpoints{}, fmt.Errorf("url.Parse: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoints{}, fmt.Errorf("base URL %q must be http or https", baseURL)
	}
	if u.Host == "" {
		return Endpoints{}, fmt.Errorf("base URL %q has no host", baseURL)
	}

	return Endpoints{base: strings.TrimRight(u.String(), "/")}, nil
}

func (e Endpoints) URL(r Resource) string {
	p, ok := paths[r]
	if !ok {
		panic(fmt.Sprintf("api: unknown resource %q", r))
	}
	return e.base + p
}

func (e Endpoints) Product(id int64) string {
	return e.URL(ResourceProducts) + "/" + strconv.FormatInt(id, 10)
}

func (e Endpoints) ProductPlans(id int64) string {
	return e.Product(id) + "/plans"
}

func (e Endpoints) CartridgeProduct(id int64) string {
	return e.URL(ResourceCartridgeProducts) + "/" + strconv.FormatInt(id, 10)
}

func (e Endpoints) QRCode(code string) string {
	return e.base + "/cartridge/qr-codes/" + url.PathEscape(code)
}

func (e Endpoints) CartItem(id int64) string {
	return e.URL(ResourceCartItems) + "/" + strconv.FormatInt(id, 10)
}
