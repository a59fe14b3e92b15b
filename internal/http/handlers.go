package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
	"expenses/internal/services"
)

type addExpenseRequest struct {
	Username      string          `json:"username"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Date          string          `json:"date"`
	PaymentMethod string          `json:"payment_method"`
	Currency      string          `json:"currency"`
}

type addExpenseResponse struct {
	Expense core.Expense          `json:"expense"`
	Alert   *services.BudgetAlert `json:"alert,omitempty"`
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req addExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user := username(r, req.Username)
	if user == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tracker, err := s.session(r.Context(), user)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	expense := core.Expense{
		Amount:        req.Amount,
		Category:      req.Category,
		Description:   req.Description,
		Date:          date,
		PaymentMethod: req.PaymentMethod,
		Currency:      req.Currency,
	}
	alert, err := tracker.Add(r.Context(), expense)
	if err != nil {
		slog.ErrorContext(r.Context(), "Add expense failed", "username", user, "error", err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, addExpenseResponse{
		Expense: expense.Normalize(),
		Alert:   alert,
	})
}

type deleteExpenseRequest struct {
	Username    string          `json:"username"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type deleteExpenseResponse struct {
	Removed int `json:"removed"`
}

func (s *Server) handleDeleteExpenses(w http.ResponseWriter, r *http.Request) {
	var req deleteExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user := username(r, req.Username)
	if user == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tracker, err := s.session(r.Context(), user)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	removed, err := tracker.Delete(r.Context(), date, req.Category, req.Amount, req.Description)
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete expenses failed", "username", user, "error", err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, deleteExpenseResponse{Removed: removed})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	user := username(r, "")
	if user == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	tracker, err := s.session(r.Context(), user)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tracker.Expenses())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	user := username(r, "")
	if user == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	tracker, err := s.session(r.Context(), user)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tracker.Search(r.URL.Query().Get("q")))
}

func (s *Server) handleDateRange(w http.ResponseWriter, r *http.Request) {
	user := username(r, "")
	if user == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	start, err := core.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "start: "+err.Error())
		return
	}
	end, err := core.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "end: "+err.Error())
		return
	}

	tracker, err := s.session(r.Context(), user)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	result, err := tracker.FilterByDateRange(start, end)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	user := username(r, "")
	if user == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	year, _, err := queryInt(r, "year")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "year must be a number")
		return
	}
	month, _, err := queryMonth(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tracker, err := s.session(r.Context(), user)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	// A category query alone is the case-insensitive lookup; combined
	// with other predicates it goes through the exact-match filter.
	q := services.Query{
		Year:          year,
		Month:         month,
		Category:      r.URL.Query().Get("category"),
		PaymentMethod: r.URL.Query().Get("payment_method"),
	}
	if q.Year == 0 && q.Month == 0 && q.PaymentMethod == "" && q.Category != "" {
		writeJSON(w, http.StatusOK, tracker.FilterByCategory(q.Category))
		return
	}
	writeJSON(w, http.StatusOK, tracker.Filter(q))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	user := username(r, "")
	if user == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	year, _, err := queryInt(r, "year")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "year must be a number")
		return
	}
	month, _, err := queryMonth(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tracker, err := s.session(r.Context(), user)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tracker.Summarize(year, month))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	user := username(r, "")
	if user == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	tracker, err := s.session(r.Context(), user)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tracker.Budgets())
}

type setBudgetRequest struct {
	Username string          `json:"username"`
	Category string          `json:"category"`
	Ceiling  decimal.Decimal `json:"ceiling"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req setBudgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user := username(r, req.Username)
	if user == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	tracker, err := s.session(r.Context(), user)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	if err := tracker.SetBudget(r.Context(), req.Category, req.Ceiling); err != nil {
		slog.ErrorContext(r.Context(), "Set budget failed", "username", user, "error", err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{req.Category: req.Ceiling})
}

type addRecurringRequest struct {
	Username    string          `json:"username"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	DayOfMonth  int             `json:"day_of_month"`
}

func (s *Server) handleAddRecurring(w http.ResponseWriter, r *http.Request) {
	var req addRecurringRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user := username(r, req.Username)
	if user == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	tracker, err := s.session(r.Context(), user)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	alert, err := tracker.AddRecurring(r.Context(), req.Amount, req.Category, req.Description, req.DayOfMonth)
	if err != nil {
		slog.ErrorContext(r.Context(), "Add recurring expense failed", "username", user, "error", err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	ledger := tracker.Expenses()
	writeJSON(w, http.StatusCreated, addExpenseResponse{
		Expense: ledger[len(ledger)-1],
		Alert:   alert,
	})
}

type convertResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Converted decimal.Decimal `json:"converted"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	user := username(r, "")
	if user == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	amountStr := strings.TrimSpace(r.URL.Query().Get("amount"))
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "amount must be a decimal number")
		return
	}
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	tracker, err := s.session(r.Context(), user)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	converted, err := tracker.ConvertCurrency(r.Context(), amount, from, to)
	if err != nil {
		slog.ErrorContext(r.Context(), "Currency conversion failed", "from", from, "to", to, "error", err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, convertResponse{
		Amount:    amount,
		From:      strings.ToUpper(strings.TrimSpace(from)),
		To:        strings.ToUpper(strings.TrimSpace(to)),
		Converted: converted,
	})
}
