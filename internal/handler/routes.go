package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes. Auth and rate limiting are
// applied globally in main, not per group.
func RegisterRoutes(e *echo.Echo, accountHandler *AccountHandler, transactionHandler *TransactionHandler, receiptHandler *ReceiptHandler, categoryHandler *CategoryHandler, importHandler *ImportHandler, subscriptionHandler *SubscriptionHandler, wsHandler *WebSocketHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Account routes
	accounts := api.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)
	accounts.POST("/:id/recompute", accountHandler.RecomputeBalance)
	accounts.GET("/:id/balance-history", accountHandler.GetBalanceHistory)

	// Transaction routes
	transactions := api.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.PATCH("/:id/category", transactionHandler.Recategorize)
	transactions.POST("/:id/receipt", receiptHandler.AttachReceipt)
	transactions.GET("/:id/receipt", receiptHandler.GetReceipt)
	transactions.DELETE("/:id/receipt", receiptHandler.DeleteReceipt)

	// Category routes
	categories := api.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)
	categories.POST("/:id/merge", categoryHandler.MergeCategories)

	// Statement import routes
	imports := api.Group("/imports")
	imports.POST("", importHandler.ImportStatement)
	imports.GET("", importHandler.ListImports)

	// Subscription detection
	api.GET("/subscriptions/detect", subscriptionHandler.DetectSubscriptions)

	// WebSocket event stream
	api.GET("/ws", wsHandler.HandleWS)
}
