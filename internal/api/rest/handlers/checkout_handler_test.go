package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/middleware"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCheckoutService returns a canned session or error
type fakeCheckoutService struct {
	session *domain.CheckoutSession
	err     error

	gotUserID  string
	gotEmail   string
	gotRequest domain.CheckoutRequest
}

func (f *fakeCheckoutService) CreateCheckoutSession(ctx context.Context, userID, email string, request domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	f.gotUserID = userID
	f.gotEmail = email
	f.gotRequest = request
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func checkoutRouter(fake *fakeCheckoutService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	handler := NewCheckoutHandler(fake, logger.New(logger.ERROR))
	r.POST("/api/v1/checkout", func(c *gin.Context) {
		c.Set(string(middleware.ContextUserIDKey), "user-1")
		c.Set(string(middleware.ContextUserEmailKey), "diner@example.com")
	}, handler.CreateCheckoutSession)
	return r
}

func postCheckout(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func validBody(t *testing.T) string {
	t.Helper()
	body, err := json.Marshal(domain.CheckoutRequest{
		RestaurantID: uuid.New(),
		Mode:         domain.CheckoutModePayment,
		SuccessURL:   "https://app.dineflow.sg/success",
		CancelURL:    "https://app.dineflow.sg/cancel",
		CartItems:    []domain.CartItem{{MenuItemID: uuid.New(), Quantity: 1}},
	})
	require.NoError(t, err)
	return string(body)
}

func TestCreateCheckoutSession_ReturnsSession(t *testing.T) {
	fake := &fakeCheckoutService{session: &domain.CheckoutSession{
		SessionID: "cs_test_1",
		URL:       "https://checkout.stripe.com/pay/cs_test_1",
	}}
	r := checkoutRouter(fake)

	w := postCheckout(r, validBody(t))

	assert.Equal(t, http.StatusOK, w.Code)

	var session domain.CheckoutSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, "cs_test_1", session.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_1", session.URL)

	// Identity comes from the auth context, not the body
	assert.Equal(t, "user-1", fake.gotUserID)
	assert.Equal(t, "diner@example.com", fake.gotEmail)
}

func TestCreateCheckoutSession_MalformedBody(t *testing.T) {
	r := checkoutRouter(&fakeCheckoutService{})

	w := postCheckout(r, "{not json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCheckoutSession_ValidationErrorNamesFields(t *testing.T) {
	var errs domain.ValidationErrors
	errs.Add("cart_items", "must contain at least one item")
	fake := &fakeCheckoutService{err: &errs}
	r := checkoutRouter(fake)

	w := postCheckout(r, validBody(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cart_items")
}

func TestCreateCheckoutSession_UnknownRestaurant(t *testing.T) {
	fake := &fakeCheckoutService{err: domain.NewConfigurationError("tenant", "unknown tenant")}
	r := checkoutRouter(fake)

	w := postCheckout(r, validBody(t))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateCheckoutSession_UpstreamErrorSurfacesDetails(t *testing.T) {
	fake := &fakeCheckoutService{err: domain.NewExternalServiceError(
		"stripe", "session_create_failed", "failed to create checkout session",
		errors.New("card_declined"),
	)}
	r := checkoutRouter(fake)

	w := postCheckout(r, validBody(t))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"details"`)
	assert.Contains(t, w.Body.String(), "card_declined")
}

func TestCreateCheckoutSession_InternalError(t *testing.T) {
	fake := &fakeCheckoutService{err: errors.New("stripe unavailable")}
	r := checkoutRouter(fake)

	w := postCheckout(r, validBody(t))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
