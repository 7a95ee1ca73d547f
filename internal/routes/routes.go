package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/funlifew/push-notify-api/internal/handlers"
)

// NewRouter sets up the API routes
func NewRouter(
	schedule *handlers.ScheduleHandler,
	subscription *handlers.SubscriptionHandler,
	topic *handlers.TopicHandler,
	template *handlers.TemplateHandler,
	ledger *handlers.LedgerHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Scheduled notifications
	router.HandleFunc("/api/schedule", schedule.Create).Methods(http.MethodPost)
	router.HandleFunc("/api/schedule", schedule.List).Methods(http.MethodGet)
	router.HandleFunc("/api/schedule/{notificationID}", schedule.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/schedule/{notificationID}", schedule.Cancel).Methods(http.MethodDelete)
	router.HandleFunc("/api/schedule/{notificationID}/send", schedule.SendNow).Methods(http.MethodPost)

	// Subscriptions
	router.HandleFunc("/api/subscriptions", subscription.Create).Methods(http.MethodPost)
	router.HandleFunc("/api/subscriptions", subscription.List).Methods(http.MethodGet)
	router.HandleFunc("/api/subscriptions/{subscriptionID}", subscription.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/subscriptions/{subscriptionID}", subscription.Delete).Methods(http.MethodDelete)

	// Topics and membership
	router.HandleFunc("/api/topics", topic.Create).Methods(http.MethodPost)
	router.HandleFunc("/api/topics", topic.List).Methods(http.MethodGet)
	router.HandleFunc("/api/topics/{topicID}", topic.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/api/topics/{topicID}/subscriptions", topic.Subscribe).Methods(http.MethodPost)
	router.HandleFunc("/api/topics/{topicID}/subscriptions/{subscriptionID}", topic.Unsubscribe).Methods(http.MethodDelete)

	// Message templates
	router.HandleFunc("/api/templates", template.Create).Methods(http.MethodPost)
	router.HandleFunc("/api/templates", template.List).Methods(http.MethodGet)
	router.HandleFunc("/api/templates/{templateID}", template.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/templates/{templateID}", template.Update).Methods(http.MethodPut)
	router.HandleFunc("/api/templates/{templateID}", template.Delete).Methods(http.MethodDelete)

	// Delivery ledger
	router.HandleFunc("/api/ledger", ledger.ListRecent).Methods(http.MethodGet)
	router.HandleFunc("/api/ledger/subscription/{subscriptionID}", ledger.ListBySubscription).Methods(http.MethodGet)

	return router
}
