package bankapi

import "time"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type balanceResponse struct {
	AccountID    string `json:"account_id"`
	BalanceMinor int64  `json:"balance_minor"`
	Currency     string `json:"currency"`
}

type transferRequest struct {
	ToAccountID string `json:"to_account_id,omitempty"`
	ToEmail     string `json:"to_email,omitempty"`
	AmountMinor int64  `json:"amount_minor"`
	Description string `json:"description,omitempty"`
}

type depositRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Description string `json:"description,omitempty"`
}

type transactionResponse struct {
	ID            string    `json:"id"`
	FromAccountID *string   `json:"from_account_id,omitempty"`
	ToAccountID   *string   `json:"to_account_id,omitempty"`
	AmountMinor   int64     `json:"amount_minor"`
	Description   string    `json:"description,omitempty"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"created_at"`
}

type transactionsResponse struct {
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
	Transactions []transactionResponse `json:"transactions"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
