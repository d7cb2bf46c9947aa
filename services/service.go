package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humamux"
	"github.com/gorilla/mux"
	"golang.org/x/net/netutil"

	"github.com/datahubio/dcs/actions"
	"github.com/datahubio/dcs/activity"
	"github.com/datahubio/dcs/auth"
	"github.com/datahubio/dcs/catalog"
	"github.com/datahubio/dcs/config"
)

// Version numbers
var majorVersion = 0
var minorVersion = 1
var patchVersion = 0

// Version string
var version = fmt.Sprintf("%d.%d.%d", majorVersion, minorVersion, patchVersion)

// This type implements the CatalogService interface, serving catalog actions
// over a CKAN-compatible action API.
type catalogService struct {
	// name of the service
	Name string
	// service version identifier
	Version string
	// time which the service was started
	StartTime time.Time
	// port on which the service currently runs
	Port int
	// router for REST endpoints
	Router *mux.Router
	// API wrapper
	API huma.API
	// HTTP server.
	Server *http.Server
	// resolves access tokens to catalog users (nil if no secret is configured,
	// in which case all calls are anonymous)
	Authenticator *auth.Authenticator
}

// Authorizes a client for the catalog, returning the action context in which
// its request executes. Requests without an Authorization header proceed
// anonymously.
func (service *catalogService) authorize(
	authorizationHeader string) (actions.Context, error) {

	if authorizationHeader == "" {
		return actions.Context{}, nil
	}
	if !strings.HasPrefix(authorizationHeader, "Bearer ") {
		return actions.Context{},
			huma.Error401Unauthorized("Invalid authorization header")
	}
	if service.Authenticator == nil {
		return actions.Context{},
			huma.Error401Unauthorized("The service accepts no access tokens")
	}
	b64Token := authorizationHeader[len("Bearer "):]
	accessTokenBytes, err := base64.StdEncoding.DecodeString(b64Token)
	if err != nil {
		return actions.Context{}, huma.Error401Unauthorized(err.Error())
	}
	accessToken := strings.TrimSpace(string(accessTokenBytes))

	user, err := service.Authenticator.GetUser(accessToken)
	if err != nil {
		return actions.Context{}, huma.Error401Unauthorized(err.Error())
	}
	return actions.Context{User: user.Name, Sysadmin: user.Sysadmin}, nil
}

type ServiceInfoOutput struct {
	Body ServiceInfoResponse `doc:"information about the service itself"`
}

// handler method for root (no authorization needed for this one)
func (service *catalogService) getRoot(ctx context.Context,
	input *struct{}) (*ServiceInfoOutput, error) {

	slog.Info("Querying root endpoint...")
	return &ServiceInfoOutput{
		Body: ServiceInfoResponse{
			Name:          service.Name,
			Version:       service.Version,
			Uptime:        int(service.uptime()),
			Documentation: "/docs",
		},
	}, nil
}

type ActionOutput struct {
	Body ActionResponse `doc:"The envelope holding the action's result"`
}

// handler method for invoking a named action with parameters in the POST body
func (service *catalogService) callAction(ctx context.Context,
	input *struct {
		Authorization string          `header:"authorization" doc:"Authorization header with encoded access token"`
		Action        string          `path:"action" example:"package_create_from_datapackage" doc:"the name of the action to invoke"`
		Body          json.RawMessage `doc:"Contains all action parameters given as key-value pairs in a JSON object" contentType:"application/json"`
		ContentType   string          `header:"Content-Type" doc:"Content-Type header (must be application/json)"`
	}) (*ActionOutput, error) {

	actionCtx, err := service.authorize(input.Authorization)
	if err != nil {
		return nil, err
	}

	params := make(actions.Params)
	if len(input.Body) > 0 {
		if err := json.Unmarshal(input.Body, &params); err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
	}

	// file uploads arrive as base64-encoded strings
	if uploadString, ok := params["upload"].(string); ok {
		uploadBytes, err := base64.StdEncoding.DecodeString(uploadString)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		params["upload"] = uploadBytes
	}

	slog.Info(fmt.Sprintf("Calling action %s...", input.Action))
	result, err := actions.Call(input.Action, actionCtx, params)
	if err != nil {
		return nil, mapActionError(err)
	}
	return actionOutput(result)
}

// handler method for listing active datasets (GET convenience endpoint)
func (service *catalogService) getPackageList(ctx context.Context,
	input *struct {
		Authorization string `header:"authorization" doc:"Authorization header with encoded access token"`
	}) (*ActionOutput, error) {

	actionCtx, err := service.authorize(input.Authorization)
	if err != nil {
		return nil, err
	}
	result, err := actions.Call("package_list", actionCtx, nil)
	if err != nil {
		return nil, mapActionError(err)
	}
	return actionOutput(result)
}

// handler method for fetching a dataset by name or id (GET convenience
// endpoint)
func (service *catalogService) getPackageShow(ctx context.Context,
	input *struct {
		Authorization string `header:"authorization" doc:"Authorization header with encoded access token"`
		Id            string `query:"id" example:"my-dataset" doc:"the name or id of a dataset"`
	}) (*ActionOutput, error) {

	actionCtx, err := service.authorize(input.Authorization)
	if err != nil {
		return nil, err
	}
	result, err := actions.Call("package_show", actionCtx,
		actions.Params{"id": input.Id})
	if err != nil {
		return nil, mapActionError(err)
	}
	return actionOutput(result)
}

// wraps an action result in the response envelope
func actionOutput(result any) (*ActionOutput, error) {
	var encoded json.RawMessage
	if result != nil {
		var err error
		encoded, err = json.Marshal(result)
		if err != nil {
			return nil, err
		}
	}
	return &ActionOutput{
		Body: ActionResponse{
			Success: true,
			Result:  encoded,
		},
	}, nil
}

// maps action errors to the HTTP statuses catalog clients expect
func mapActionError(err error) error {
	var validation *actions.ValidationError
	if errors.As(err, &validation) {
		return huma.Error409Conflict(err.Error())
	}
	var noAction *actions.NotFoundError
	if errors.As(err, &noAction) {
		return huma.Error400BadRequest(err.Error())
	}
	var noDataset *catalog.DatasetNotFoundError
	if errors.As(err, &noDataset) {
		return huma.Error404NotFound(err.Error())
	}
	var noOrg *catalog.OrganizationNotFoundError
	if errors.As(err, &noOrg) {
		return huma.Error404NotFound(err.Error())
	}
	return err
}

// returns the uptime for the service in seconds
func (service *catalogService) uptime() float64 {
	return time.Since(service.StartTime).Seconds()
}

// constructs a catalog service given our configuration
func NewCatalogService() (CatalogService, error) {

	// validate our configuration
	if config.Service.DataDirectory == "" {
		return nil, fmt.Errorf("No data directory was specified.")
	}
	if config.Service.SiteURL == "" {
		// resource URLs need a base, so fall back to the local address
		config.Service.SiteURL = fmt.Sprintf("http://localhost:%d",
			config.Service.Port)
	}

	service := new(catalogService)
	service.Name = "DCS"
	service.Version = version
	service.Port = -1

	// stand up the authenticator if a service secret is configured
	if config.Service.Secret != "" {
		authenticator, err := auth.NewAuthenticator()
		if err != nil {
			slog.Warn(fmt.Sprintf("Couldn't read access tokens: %s (all calls will be anonymous)",
				err.Error()))
		} else {
			service.Authenticator = authenticator
		}
	}

	// set up routing
	service.Router = mux.NewRouter()
	api := humamux.New(service.Router, huma.DefaultConfig(service.Name, service.Version))
	huma.Get(api, "/", service.getRoot)

	// API v3 (the version catalog clients speak)
	huma.Get(api, "/api/3/action/package_list", service.getPackageList)
	huma.Get(api, "/api/3/action/package_show", service.getPackageShow)
	huma.Post(api, "/api/3/action/{action}", service.callAction)

	AddDocEndpoints(service.Router)

	return service, nil
}

// starts the catalog service
func (service *catalogService) Start(port int) error {
	slog.Info(fmt.Sprintf("Starting %s service on port %d...", service.Name, port))
	slog.Info(fmt.Sprintf("(Accepting up to %d connections)", config.Service.MaxConnections))

	service.StartTime = time.Now()

	// create a listener that limits the number of incoming connections
	service.Port = port
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	defer listener.Close()
	listener = netutil.LimitListener(listener, config.Service.MaxConnections)

	// open the catalog store and the activity log
	if err = catalog.Init(); err != nil {
		return err
	}
	if err = activity.Init(); err != nil {
		return err
	}

	// start the server
	service.Server = &http.Server{
		Handler: service.Router}
	err = service.Server.Serve(listener)

	// we don't report the server closing as an error
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

// gracefully shuts down the service without interrupting active connections
func (service *catalogService) Shutdown(ctx context.Context) error {
	if err := catalog.Finalize(); err != nil {
		slog.Error(fmt.Sprintf("Couldn't close the catalog store: %s", err.Error()))
	}
	if err := activity.Finalize(); err != nil {
		slog.Error(fmt.Sprintf("Couldn't close the activity log: %s", err.Error()))
	}
	if service.Server != nil {
		return service.Server.Shutdown(ctx)
	}
	return nil
}

// closes down the service abruptly, freeing all resources
func (service *catalogService) Close() {
	catalog.Finalize()
	activity.Finalize()
	if service.Server != nil {
		service.Server.Close()
	}
}
