/**
 * @description
 * CRUD handlers for schools, students, payments, transactions, roles, settings and the
 * three wallet kinds. They decode the body, call AdminService, and map errors through
 * respondError. Deletes are soft and answer 204.
 */

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/transfa/schoolfees-service/internal/domain"
)

func (h *Handlers) respond(w http.ResponseWriter, endpoint string, status int, v interface{}, err error) {
	if err != nil {
		respondError(w, h.logger, endpoint, err)
		return
	}
	writeJSON(w, status, v)
}

func (h *Handlers) respondDeleted(w http.ResponseWriter, endpoint string, err error) {
	if err != nil {
		respondError(w, h.logger, endpoint, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func queryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name)
		return nil, false
	}
	return &id, true
}

// Schools

func (h *Handlers) ListSchoolsHandler(w http.ResponseWriter, r *http.Request) {
	schools, err := h.admin.ListSchools(r.Context(), strings.TrimSpace(r.URL.Query().Get("name")))
	h.respond(w, "list_schools", http.StatusOK, emptyIfNil(schools), err)
}

func (h *Handlers) CreateSchoolHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.SchoolInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	school, err := h.admin.CreateSchool(r.Context(), input)
	h.respond(w, "create_school", http.StatusCreated, school, err)
}

func (h *Handlers) GetSchoolHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	school, err := h.admin.GetSchool(r.Context(), id)
	h.respond(w, "get_school", http.StatusOK, school, err)
}

func (h *Handlers) UpdateSchoolHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var update domain.SchoolUpdate
	if !h.decodeJSON(w, r, &update) {
		return
	}
	school, err := h.admin.UpdateSchool(r.Context(), id, update)
	h.respond(w, "update_school", http.StatusOK, school, err)
}

func (h *Handlers) DeleteSchoolHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	h.respondDeleted(w, "delete_school", h.admin.DeleteSchool(r.Context(), id))
}

// Students

func (h *Handlers) ListStudentsHandler(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := queryUUID(w, r, "school_id")
	if !ok {
		return
	}
	students, err := h.admin.ListStudents(r.Context(), schoolID)
	h.respond(w, "list_students", http.StatusOK, emptyIfNil(students), err)
}

func (h *Handlers) CreateStudentHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.StudentInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	student, err := h.admin.CreateStudent(r.Context(), input)
	h.respond(w, "create_student", http.StatusCreated, student, err)
}

func (h *Handlers) GetStudentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	student, err := h.admin.GetStudent(r.Context(), id)
	h.respond(w, "get_student", http.StatusOK, student, err)
}

func (h *Handlers) GetStudentByIndexHandler(w http.ResponseWriter, r *http.Request) {
	student, err := h.admin.GetStudentByIndexNumber(r.Context(), strings.TrimSpace(chi.URLParam(r, "index_number")))
	h.respond(w, "get_student_by_index", http.StatusOK, student, err)
}

func (h *Handlers) UpdateStudentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var update domain.StudentUpdate
	if !h.decodeJSON(w, r, &update) {
		return
	}
	student, err := h.admin.UpdateStudent(r.Context(), id, update)
	h.respond(w, "update_student", http.StatusOK, student, err)
}

func (h *Handlers) DeleteStudentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	h.respondDeleted(w, "delete_student", h.admin.DeleteStudent(r.Context(), id))
}

// Payments

func (h *Handlers) ListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := queryUUID(w, r, "school_id")
	if !ok {
		return
	}
	studentID, ok := queryUUID(w, r, "student_id")
	if !ok {
		return
	}
	payments, err := h.admin.ListPayments(r.Context(), domain.PaymentFilter{SchoolID: schoolID, StudentID: studentID})
	h.respond(w, "list_payments", http.StatusOK, emptyIfNil(payments), err)
}

func (h *Handlers) CreatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.PaymentInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	payment, err := h.admin.CreatePayment(r.Context(), input)
	h.respond(w, "create_payment", http.StatusCreated, payment, err)
}

func (h *Handlers) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	payment, err := h.admin.GetPayment(r.Context(), id)
	h.respond(w, "get_payment", http.StatusOK, payment, err)
}

func (h *Handlers) GetPaymentByReferenceHandler(w http.ResponseWriter, r *http.Request) {
	payment, err := h.admin.GetPaymentByReference(r.Context(), strings.TrimSpace(chi.URLParam(r, "reference")))
	h.respond(w, "get_payment_by_reference", http.StatusOK, payment, err)
}

func (h *Handlers) DeletePaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	h.respondDeleted(w, "delete_payment", h.admin.DeletePayment(r.Context(), id))
}

// Transactions

func (h *Handlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	txs, err := h.admin.ListTransactions(r.Context())
	h.respond(w, "list_transactions", http.StatusOK, emptyIfNil(txs), err)
}

func (h *Handlers) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.TransactionInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	tx, err := h.admin.CreateTransaction(r.Context(), input)
	h.respond(w, "create_transaction", http.StatusCreated, tx, err)
}

func (h *Handlers) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	tx, err := h.admin.GetTransaction(r.Context(), id)
	h.respond(w, "get_transaction", http.StatusOK, tx, err)
}

func (h *Handlers) UpdateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var update domain.TransactionUpdate
	if !h.decodeJSON(w, r, &update) {
		return
	}
	tx, err := h.admin.UpdateTransaction(r.Context(), id, update)
	h.respond(w, "update_transaction", http.StatusOK, tx, err)
}

func (h *Handlers) DeleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	h.respondDeleted(w, "delete_transaction", h.admin.DeleteTransaction(r.Context(), id))
}

// Roles and user roles

func (h *Handlers) ListRolesHandler(w http.ResponseWriter, r *http.Request) {
	roles, err := h.admin.ListRoles(r.Context())
	h.respond(w, "list_roles", http.StatusOK, emptyIfNil(roles), err)
}

func (h *Handlers) CreateRoleHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.RoleInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	role, err := h.admin.CreateRole(r.Context(), input)
	h.respond(w, "create_role", http.StatusCreated, role, err)
}

func (h *Handlers) GetRoleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.admin.GetRole(r.Context(), id)
	h.respond(w, "get_role", http.StatusOK, role, err)
}

func (h *Handlers) UpdateRoleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var input domain.RoleInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	role, err := h.admin.UpdateRole(r.Context(), id, input)
	h.respond(w, "update_role", http.StatusOK, role, err)
}

func (h *Handlers) DeleteRoleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	h.respondDeleted(w, "delete_role", h.admin.DeleteRole(r.Context(), id))
}

func (h *Handlers) ListRoleMembersHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	members, err := h.admin.ListUserRolesByRole(r.Context(), id)
	h.respond(w, "list_role_members", http.StatusOK, emptyIfNil(members), err)
}

func (h *Handlers) AssignUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	var assignment domain.UserRoleAssignment
	if !h.decodeJSON(w, r, &assignment) {
		return
	}
	ur, err := h.admin.AssignUserRole(r.Context(), assignment)
	h.respond(w, "assign_user_role", http.StatusCreated, ur, err)
}

func (h *Handlers) RevokeUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "user_id")
	if !ok {
		return
	}
	roleID, ok := pathUUID(w, r, "role_id")
	if !ok {
		return
	}
	h.respondDeleted(w, "revoke_user_role", h.admin.RevokeUserRole(r.Context(), userID, roleID))
}

// Settings

type settingValue struct {
	Value string `json:"value"`
}

func (h *Handlers) ListSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.admin.ListSettings(r.Context(), strings.TrimSpace(r.URL.Query().Get("key")))
	h.respond(w, "list_settings", http.StatusOK, emptyIfNil(settings), err)
}

func (h *Handlers) CreateSettingHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.SettingInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	setting, err := h.admin.CreateSetting(r.Context(), input)
	h.respond(w, "create_setting", http.StatusCreated, setting, err)
}

func (h *Handlers) GetSettingHandler(w http.ResponseWriter, r *http.Request) {
	setting, err := h.admin.GetSetting(r.Context(), chi.URLParam(r, "key"))
	h.respond(w, "get_setting", http.StatusOK, setting, err)
}

func (h *Handlers) UpdateSettingHandler(w http.ResponseWriter, r *http.Request) {
	var body settingValue
	if !h.decodeJSON(w, r, &body) {
		return
	}
	setting, err := h.admin.UpdateSetting(r.Context(), chi.URLParam(r, "key"), body.Value)
	h.respond(w, "update_setting", http.StatusOK, setting, err)
}

func (h *Handlers) DeleteSettingHandler(w http.ResponseWriter, r *http.Request) {
	h.respondDeleted(w, "delete_setting", h.admin.DeleteSetting(r.Context(), chi.URLParam(r, "key")))
}

// School wallets

func (h *Handlers) ListSchoolWalletsHandler(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.admin.ListSchoolWallets(r.Context())
	h.respond(w, "list_school_wallets", http.StatusOK, emptyIfNil(wallets), err)
}

func (h *Handlers) CreateSchoolWalletHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.SchoolWalletInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	wallet, err := h.admin.CreateSchoolWallet(r.Context(), input)
	h.respond(w, "create_school_wallet", http.StatusCreated, wallet, err)
}

func (h *Handlers) GetSchoolWalletHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	wallet, err := h.admin.GetSchoolWallet(r.Context(), id)
	h.respond(w, "get_school_wallet", http.StatusOK, wallet, err)
}

func (h *Handlers) GetSchoolWalletBySchoolHandler(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := pathUUID(w, r, "school_id")
	if !ok {
		return
	}
	wallet, err := h.admin.GetSchoolWalletBySchool(r.Context(), schoolID)
	h.respond(w, "get_school_wallet_by_school", http.StatusOK, wallet, err)
}

func (h *Handlers) UpdateSchoolWalletHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var update domain.SchoolWalletUpdate
	if !h.decodeJSON(w, r, &update) {
		return
	}
	wallet, err := h.admin.UpdateSchoolWallet(r.Context(), id, update)
	h.respond(w, "update_school_wallet", http.StatusOK, wallet, err)
}

func (h *Handlers) DeleteSchoolWalletHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	h.respondDeleted(w, "delete_school_wallet", h.admin.DeleteSchoolWallet(r.Context(), id))
}

// Admin wallets

func (h *Handlers) ListAdminWalletsHandler(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.admin.ListAdminWallets(r.Context())
	h.respond(w, "list_admin_wallets", http.StatusOK, emptyIfNil(wallets), err)
}

func (h *Handlers) CreateAdminWalletHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.AdminWalletInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	wallet, err := h.admin.CreateAdminWallet(r.Context(), input)
	h.respond(w, "create_admin_wallet", http.StatusCreated, wallet, err)
}

func (h *Handlers) GetAdminWalletHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	wallet, err := h.admin.GetAdminWallet(r.Context(), id)
	h.respond(w, "get_admin_wallet", http.StatusOK, wallet, err)
}

// SearchAdminWalletHandler finds a wallet by exactly one of ?id= or ?account_number=.
func (h *Handlers) SearchAdminWalletHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := queryUUID(w, r, "id")
	if !ok {
		return
	}
	lookup := domain.AdminWalletLookup{ID: id, AccountNumber: strings.TrimSpace(r.URL.Query().Get("account_number"))}
	wallet, err := h.admin.FindAdminWallet(r.Context(), lookup)
	h.respond(w, "search_admin_wallet", http.StatusOK, wallet, err)
}

func (h *Handlers) UpdateAdminWalletBalanceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var body domain.AdminWalletBalanceUpdate
	if !h.decodeJSON(w, r, &body) {
		return
	}
	if body.Balance == nil {
		writeError(w, http.StatusBadRequest, "balance is required")
		return
	}
	wallet, err := h.admin.UpdateAdminWalletBalance(r.Context(), id, *body.Balance)
	h.respond(w, "update_admin_wallet_balance", http.StatusOK, wallet, err)
}

func (h *Handlers) DeleteAdminWalletHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	h.respondDeleted(w, "delete_admin_wallet", h.admin.DeleteAdminWallet(r.Context(), id))
}

// Super admin wallets

func (h *Handlers) ListSuperAdminWalletsHandler(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.admin.ListSuperAdminWallets(r.Context())
	h.respond(w, "list_super_admin_wallets", http.StatusOK, emptyIfNil(wallets), err)
}

func (h *Handlers) CreateSuperAdminWalletHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.SuperAdminWalletInput
	if !h.decodeJSON(w, r, &input) {
		return
	}
	wallet, err := h.admin.CreateSuperAdminWallet(r.Context(), input)
	h.respond(w, "create_super_admin_wallet", http.StatusCreated, wallet, err)
}

func (h *Handlers) GetSuperAdminWalletHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "user_id")
	if !ok {
		return
	}
	wallet, err := h.admin.GetSuperAdminWallet(r.Context(), userID)
	h.respond(w, "get_super_admin_wallet", http.StatusOK, wallet, err)
}

func (h *Handlers) UpdateSuperAdminWalletHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "user_id")
	if !ok {
		return
	}
	var update domain.SuperAdminWalletUpdate
	if !h.decodeJSON(w, r, &update) {
		return
	}
	wallet, err := h.admin.UpdateSuperAdminWallet(r.Context(), userID, update)
	h.respond(w, "update_super_admin_wallet", http.StatusOK, wallet, err)
}

func (h *Handlers) DeleteSuperAdminWalletHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "user_id")
	if !ok {
		return
	}
	h.respondDeleted(w, "delete_super_admin_wallet", h.admin.DeleteSuperAdminWallet(r.Context(), userID))
}
