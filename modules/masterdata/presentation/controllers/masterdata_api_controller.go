package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/openelect/basis/modules/masterdata/domain/orgunit"
	"github.com/openelect/basis/modules/masterdata/domain/unitkind"
	"github.com/openelect/basis/modules/masterdata/services"
	"github.com/openelect/basis/pkg/application"
	"github.com/openelect/basis/pkg/composables"
	"github.com/openelect/basis/pkg/configuration"
	"github.com/openelect/basis/pkg/httpapi"
)

var validate = validator.New()

type MasterDataAPIController struct {
	app       application.Application
	units     *services.OrgUnitService
	tree      *services.TreeService
	snapshots *services.SnapshotService
	parties   *services.PartyService
	districts *services.DistrictService
	apiPrefix string
}

func NewMasterDataAPIController(app application.Application) application.Controller {
	return &MasterDataAPIController{
		app:       app,
		units:     app.Service(services.OrgUnitService{}).(*services.OrgUnitService),
		tree:      app.Service(services.TreeService{}).(*services.TreeService),
		snapshots: app.Service(services.SnapshotService{}).(*services.SnapshotService),
		parties:   app.Service(services.PartyService{}).(*services.PartyService),
		districts: app.Service(services.DistrictService{}).(*services.DistrictService),
		apiPrefix: "/masterdata/api",
	}
}

func (c *MasterDataAPIController) Key() string {
	return c.apiPrefix
}

func (c *MasterDataAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()
	api.Use(c.provideContext)

	api.HandleFunc("/units", c.CreateUnit).Methods(http.MethodPost)
	api.HandleFunc("/units/{id}", c.UpdateUnit).Methods(http.MethodPatch)
	api.HandleFunc("/units/{id}", c.DeleteUnit).Methods(http.MethodDelete)
	api.HandleFunc("/units/{id}/master-data", c.UpdateMasterData).Methods(http.MethodPut)
	api.HandleFunc("/units/{id}/counting-circles", c.UpdateCountingCircles).Methods(http.MethodPut)
	api.HandleFunc("/units/{id}/logo", c.UpdateLogo).Methods(http.MethodPut)
	api.HandleFunc("/units/{id}/logo", c.DeleteLogo).Methods(http.MethodDelete)

	api.HandleFunc("/units/{id}/parties", c.CreateParty).Methods(http.MethodPost)
	api.HandleFunc("/units/{id}/parties", c.ListParties).Methods(http.MethodGet)
	api.HandleFunc("/units/{id}/parties/{partyId}", c.UpdateParty).Methods(http.MethodPatch)
	api.HandleFunc("/units/{id}/parties/{partyId}", c.DeleteParty).Methods(http.MethodDelete)

	api.HandleFunc("/tree", c.GetTree).Methods(http.MethodGet)
	api.HandleFunc("/tree/snapshot", c.GetTreeSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/districts", c.UpsertDistrict).Methods(http.MethodPut)
	api.HandleFunc("/districts", c.ListDistricts).Methods(http.MethodGet)
	api.HandleFunc("/districts/{id}/snapshot", c.GetDistrictSnapshot).Methods(http.MethodGet)
}

// provideContext binds the pool and the caller's tenant onto the request
// context. Authentication happens upstream; the header is trusted here.
func (c *MasterDataAPIController) provideContext(next http.Handler) http.Handler {
	conf := configuration.Use()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := composables.WithPool(r.Context(), c.app.DB())
		if tenantID := r.Header.Get(conf.TenantIDHeader); tenantID != "" {
			ctx = composables.WithTenantID(ctx, tenantID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type unitRequest struct {
	Name      string     `json:"name" validate:"required,max=255"`
	ShortName string     `json:"short_name" validate:"max=50"`
	Kind      string     `json:"kind" validate:"required"`
	Canton    string     `json:"canton" validate:"max=2"`
	ParentID  *uuid.UUID `json:"parent_id"`
}

type createUnitRequest struct {
	unitRequest
	ID       uuid.UUID `json:"id"`
	TenantID string    `json:"tenant_id"`
}

type unitResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ShortName string     `json:"short_name"`
	Kind      string     `json:"kind"`
	Canton    string     `json:"canton,omitempty"`
	TenantID  string     `json:"tenant_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Version   int64      `json:"version"`
}

func unitResponseOf(a *orgunit.Aggregate) unitResponse {
	return unitResponse{
		ID:        a.ID,
		Name:      a.Name,
		ShortName: a.ShortName,
		Kind:      a.Kind.String(),
		Canton:    a.Canton,
		TenantID:  a.TenantID,
		ParentID:  a.ParentID,
		Version:   a.Version,
	}
}

func (c *MasterDataAPIController) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req createUnitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	kind, err := unitkind.Parse(req.Kind)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "BASIS_INVALID_BODY", "unknown unit kind")
		return
	}
	tenantID := req.TenantID
	if tenantID == "" {
		tenantID, _ = composables.UseTenantID(r.Context())
	}

	a, err := c.units.CreateUnit(r.Context(), services.CreateUnitInput{
		ID:        req.ID,
		Name:      req.Name,
		ShortName: req.ShortName,
		Kind:      kind,
		Canton:    req.Canton,
		TenantID:  tenantID,
		ParentID:  req.ParentID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, unitResponseOf(a))
}

func (c *MasterDataAPIController) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req unitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	kind, err := unitkind.Parse(req.Kind)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "BASIS_INVALID_BODY", "unknown unit kind")
		return
	}

	a, err := c.units.UpdateUnit(r.Context(), id, services.UpdateUnitInput{
		Name:      req.Name,
		ShortName: req.ShortName,
		Kind:      kind,
		Canton:    req.Canton,
		ParentID:  req.ParentID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, unitResponseOf(a))
}

func (c *MasterDataAPIController) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := c.units.DeleteUnit(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

type masterDataRequest struct {
	ContactPerson                 *orgunit.ContactPerson                 `json:"contact_person"`
	VotingCardData                *orgunit.VotingCardData                `json:"voting_card_data"`
	PlausibilisationConfiguration *orgunit.PlausibilisationConfiguration `json:"plausibilisation_configuration"`
}

func (c *MasterDataAPIController) UpdateMasterData(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req masterDataRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := c.units.UpdateMasterData(r.Context(), id, services.MasterDataInput{
		ContactPerson:                 req.ContactPerson,
		VotingCardData:                req.VotingCardData,
		PlausibilisationConfiguration: req.PlausibilisationConfiguration,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, unitResponseOf(a))
}

type countingCirclesRequest struct {
	DistrictIDs []uuid.UUID `json:"district_ids" validate:"required"`
}

func (c *MasterDataAPIController) UpdateCountingCircles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req countingCirclesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := c.units.UpdateCountingCircleEntries(r.Context(), id, req.DistrictIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, unitResponseOf(a))
}

type logoRequest struct {
	LogoRef string `json:"logo_ref" validate:"required,max=1024"`
}

func (c *MasterDataAPIController) UpdateLogo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req logoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := c.units.UpdateLogo(r.Context(), id, req.LogoRef)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, unitResponseOf(a))
}

func (c *MasterDataAPIController) DeleteLogo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if _, err := c.units.DeleteLogo(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

type partyRequest struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" validate:"required,max=255"`
	ShortName string    `json:"short_name" validate:"max=50"`
}

func (c *MasterDataAPIController) CreateParty(w http.ResponseWriter, r *http.Request) {
	unitID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req partyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := c.units.CreateParty(r.Context(), unitID, services.PartyInput{
		PartyID:   req.ID,
		Name:      req.Name,
		ShortName: req.ShortName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, unitResponseOf(a))
}

func (c *MasterDataAPIController) UpdateParty(w http.ResponseWriter, r *http.Request) {
	unitID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	partyID, ok := pathUUID(w, r, "partyId")
	if !ok {
		return
	}
	var req partyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := c.units.UpdateParty(r.Context(), unitID, services.PartyInput{
		PartyID:   partyID,
		Name:      req.Name,
		ShortName: req.ShortName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, unitResponseOf(a))
}

func (c *MasterDataAPIController) DeleteParty(w http.ResponseWriter, r *http.Request) {
	unitID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	partyID, ok := pathUUID(w, r, "partyId")
	if !ok {
		return
	}
	if _, err := c.units.DeleteParty(r.Context(), unitID, partyID); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *MasterDataAPIController) ListParties(w http.ResponseWriter, r *http.Request) {
	unitID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	rows, err := c.parties.ListParties(r.Context(), unitID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"parties": rows})
}

func (c *MasterDataAPIController) GetTree(w http.ResponseWriter, r *http.Request) {
	tenantID, err := composables.UseTenantID(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "BASIS_NO_TENANT", "tenant header is required")
		return
	}
	forest, err := c.tree.GetTree(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"tree": forest})
}

func (c *MasterDataAPIController) GetTreeSnapshot(w http.ResponseWriter, r *http.Request) {
	asOf, ok := queryTime(w, r, "as_of")
	if !ok {
		return
	}
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"

	forest, err := c.snapshots.ListTreeSnapshot(r.Context(), asOf, includeDeleted)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"tree": forest, "as_of": asOf.Format(time.RFC3339)})
}

func (c *MasterDataAPIController) GetDistrictSnapshot(w http.ResponseWriter, r *http.Request) {
	districtID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	asOf, ok := queryTime(w, r, "as_of")
	if !ok {
		return
	}
	tenantID, err := composables.UseTenantID(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "BASIS_NO_TENANT", "tenant header is required")
		return
	}

	rows, err := c.snapshots.ListSnapshot(r.Context(), tenantID, districtID, asOf)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"units": rows, "as_of": asOf.Format(time.RFC3339)})
}

type districtRequest struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name" validate:"required,max=255"`
	AuthorityTenantID string    `json:"authority_tenant_id" validate:"max=255"`
}

func (c *MasterDataAPIController) UpsertDistrict(w http.ResponseWriter, r *http.Request) {
	var req districtRequest
	if !decodeBody(w, r, &req) {
		return
	}
	row, err := c.districts.Upsert(r.Context(), services.DistrictRow{
		ID:                req.ID,
		Name:              req.Name,
		AuthorityTenantID: req.AuthorityTenantID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, row)
}

func (c *MasterDataAPIController) ListDistricts(w http.ResponseWriter, r *http.Request) {
	rows, err := c.districts.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"districts": rows})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeAPIError(w, http.StatusBadRequest, "BASIS_INVALID_BODY", "request body is not valid JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeAPIError(w, http.StatusBadRequest, "BASIS_INVALID_BODY", err.Error())
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "BASIS_INVALID_ID", name+" is not a valid uuid")
		return uuid.Nil, false
	}
	return id, true
}

func queryTime(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Now().UTC(), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "BASIS_INVALID_QUERY", name+" must be RFC 3339")
		return time.Time{}, false
	}
	return t.UTC(), true
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	_ = httpapi.WriteError(w, status, code, message, nil)
}

func writeServiceError(w http.ResponseWriter, err error) {
	var se *services.ServiceError
	if errors.As(err, &se) {
		writeAPIError(w, se.Status, se.Code, se.Message)
		return
	}
	writeAPIError(w, http.StatusInternalServerError, "BASIS_INTERNAL", "internal error")
}
