package router

import (
	"contacts-backend/internal/api"
	"contacts-backend/internal/api/endpoints"
	"contacts-backend/internal/api/middleware"
	contactsservice "contacts-backend/internal/service/contacts"
	"net/http"
)

func ContactsRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		service := contactsservice.New(s.Database(), s.Publisher())
		RegisterContactsRoutes(mux, s, prefix, service)
	}
}

// ContactsServiceRoutes mounts the contact routes on a prebuilt service, such
// as one backed by the in-memory repository.
func ContactsServiceRoutes(prefix string, service *contactsservice.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		RegisterContactsRoutes(mux, s, prefix, service)
	}
}

// RegisterContactsRoutes mounts every tenant and admin route backed by service.
func RegisterContactsRoutes(mux *http.ServeMux, s *api.APIServer, prefix string, service *contactsservice.Service) {
	contactsEndpoints := endpoints.NewContactsEndpoints(service)
	keysEndpoints := endpoints.NewKeysEndpoints(service)
	duplicatesEndpoints := endpoints.NewDuplicatesEndpoints(service)
	profileEndpoints := endpoints.NewProfileEndpoints(service)

	user := middleware.ValidateUserJWT

	mux.HandleFunc(prefix+"/contacts/fields", s.MakeHTTPHandleFunc(contactsEndpoints.Fields, user))
	mux.HandleFunc(prefix+"/contacts/filters/values", s.MakeHTTPHandleFunc(contactsEndpoints.FilterValues, user))
	mux.HandleFunc(prefix+"/contacts/filters/preview", s.MakeHTTPHandleFunc(contactsEndpoints.FilterPreview, user))
	mux.HandleFunc(prefix+"/contacts/search", s.MakeHTTPHandleFunc(contactsEndpoints.Search, user))
	mux.HandleFunc(prefix+"/contacts/aggregates", s.MakeHTTPHandleFunc(contactsEndpoints.Aggregates, user))
	mux.HandleFunc(prefix+"/contacts/finalize", s.MakeHTTPHandleFunc(contactsEndpoints.Finalize, user))
	mux.HandleFunc(prefix+"/contacts/import", s.MakeHTTPHandleFunc(contactsEndpoints.Import, user))
	mux.HandleFunc(prefix+"/contacts/export", s.MakeHTTPHandleFunc(contactsEndpoints.Export, user))
	mux.HandleFunc(prefix+"/contacts/bulk", s.MakeHTTPHandleFunc(contactsEndpoints.Bulk, user))
	mux.HandleFunc(prefix+"/contacts/{id}", s.MakeHTTPHandleFunc(contactsEndpoints.Contact, user))

	mux.HandleFunc(prefix+"/contacts/keys", s.MakeHTTPHandleFunc(keysEndpoints.KeyConfig, user))
	mux.HandleFunc(prefix+"/contacts/keys/primary", s.MakeHTTPHandleFunc(keysEndpoints.PrimaryKey, user))
	mux.HandleFunc(prefix+"/contacts/keys/email", s.MakeHTTPHandleFunc(keysEndpoints.EmailKey, user))
	mux.HandleFunc(prefix+"/contacts/revert-requests", s.MakeHTTPHandleFunc(keysEndpoints.RevertRequests, user))
	mux.HandleFunc(prefix+"/admin/revert-requests", s.MakeHTTPHandleFunc(keysEndpoints.AdminRevertRequests, middleware.ValidateAdminJWT))

	mux.HandleFunc(prefix+"/contacts/duplicates", s.MakeHTTPHandleFunc(duplicatesEndpoints.Duplicates, user))
	mux.HandleFunc(prefix+"/contacts/duplicates/resolve", s.MakeHTTPHandleFunc(duplicatesEndpoints.Resolve, user))

	mux.HandleFunc(prefix+"/profile/columns", s.MakeHTTPHandleFunc(profileEndpoints.Columns, user))
}
