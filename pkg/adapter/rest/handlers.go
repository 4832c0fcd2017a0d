package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xenonforlife/Sample-Server-node-opcua/internal/logger"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/engine"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/nodeset"
)

// Service names used for routing metrics.
const (
	serviceStatus     = "Status"
	serviceNamespaces = "Namespaces"
	serviceNode       = "Node"
	serviceRead       = "Read"
	serviceBrowse     = "Browse"
	serviceWrite      = "Write"
	serviceTranslate  = "TranslateBrowsePaths"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// Handler returns the HTTP handler with every route mounted under the
// resource path.
func (a *RESTAdapter) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(requestID)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(a.rateLimit)

	r.Route(a.config.ResourcePath, func(r chi.Router) {
		r.Use(a.requireAddressSpace)

		r.Get("/status", a.instrument(serviceStatus, a.handleStatus))
		r.Get("/namespaces", a.instrument(serviceNamespaces, a.handleNamespaces))
		r.Get("/nodes/{nodeId}", a.instrument(serviceNode, a.handleNode))
		r.Post("/read", a.instrument(serviceRead, a.handleRead))
		r.Post("/browse", a.instrument(serviceBrowse, a.handleBrowse))
		r.Post("/write", a.instrument(serviceWrite, a.handleWrite))
		r.Post("/translate", a.instrument(serviceTranslate, a.handleTranslate))
	})

	return r
}

// ============================================================================
// Introspection
// ============================================================================

func (a *RESTAdapter) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Endpoint: a.Endpoint()}

	err := a.as.View(r.Context(), func(tx *addrspace.Tx) error {
		state, err := tx.FindNode(nodeset.State)
		if err != nil {
			return err
		}
		if v, ok := valueOf[int32](state); ok {
			resp.State = engine.ServerState(v).String()
		} else {
			resp.State = engine.StateUnknown.String()
		}

		lookup := func(id addrspace.NodeID) *addrspace.Node {
			n, err := tx.FindNode(id)
			if err != nil {
				return nil
			}
			return n
		}
		if v, ok := valueOf[time.Time](lookup(nodeset.StartTime)); ok {
			resp.StartTime = &v
		}
		if v, ok := valueOf[time.Time](lookup(nodeset.CurrentTime)); ok {
			resp.CurrentTime = &v
		}
		resp.SecondsTillShutdown, _ = valueOf[uint32](lookup(nodeset.SecondsTillShutdown))
		resp.ShutdownReason, _ = valueOf[addrspace.LocalizedText](lookup(nodeset.ShutdownReason))
		resp.BuildInfo.ProductURI, _ = valueOf[string](lookup(nodeset.ProductURI))
		resp.BuildInfo.ManufacturerName, _ = valueOf[string](lookup(nodeset.ManufacturerName))
		resp.BuildInfo.ProductName, _ = valueOf[string](lookup(nodeset.ProductName))
		resp.BuildInfo.SoftwareVersion, _ = valueOf[string](lookup(nodeset.SoftwareVersion))
		resp.BuildInfo.BuildNumber, _ = valueOf[string](lookup(nodeset.BuildNumber))
		if v, ok := valueOf[time.Time](lookup(nodeset.BuildDate)); ok {
			resp.BuildInfo.BuildDate = &v
		}
		return nil
	})
	if addrspace.IsNotFound(err) {
		writeError(w, r, http.StatusServiceUnavailable, StatusBadResourceUnavailable, "server status is not published")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, StatusBadInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// valueOf returns the node's value when it holds a T.
func valueOf[T any](n *addrspace.Node) (T, bool) {
	var zero T
	if n == nil || n.Value == nil {
		return zero, false
	}
	v, ok := n.Value.Value.(T)
	return v, ok
}

func (a *RESTAdapter) handleNamespaces(w http.ResponseWriter, r *http.Request) {
	nss, err := a.as.Namespaces(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, StatusBadInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nss)
}

func (a *RESTAdapter) handleNode(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "nodeId")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}

	id, err := addrspace.ParseNodeID(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, StatusBadNodeIDInvalid, err.Error())
		return
	}

	node, err := a.as.FindNode(r.Context(), id)
	switch {
	case addrspace.IsNotFound(err):
		writeError(w, r, http.StatusNotFound, StatusBadNodeIDUnknown, err.Error())
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, StatusBadInternalError, err.Error())
	default:
		writeJSON(w, http.StatusOK, node)
	}
}

// ============================================================================
// Read
// ============================================================================

func (a *RESTAdapter) handleRead(w http.ResponseWriter, r *http.Request) {
	var req ReadRequest
	if !a.decodeBatch(w, r, &req, func() int { return len(req.NodesToRead) }, a.config.OperationLimits.MaxNodesPerRead) {
		return
	}
	a.metrics.RecordOperations(serviceRead, len(req.NodesToRead))

	results := make([]DataValue, len(req.NodesToRead))
	err := a.as.View(r.Context(), func(tx *addrspace.Tx) error {
		for i, rv := range req.NodesToRead {
			results[i] = readAttribute(tx, rv)
		}
		return nil
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, StatusBadInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ReadResponse{Results: results})
}

func readAttribute(tx *addrspace.Tx, rv ReadValueID) DataValue {
	id, err := addrspace.ParseNodeID(rv.NodeID)
	if err != nil {
		return DataValue{Status: StatusBadNodeIDInvalid}
	}
	node, err := tx.FindNode(id)
	if err != nil {
		return DataValue{Status: statusFor(err)}
	}

	good := func(v any) DataValue { return DataValue{Status: StatusGood, Value: v} }

	switch rv.Attribute {
	case "", "Value":
		if node.Class != addrspace.NodeClassVariable && node.Class != addrspace.NodeClassVariableType {
			return DataValue{Status: StatusBadAttributeIDInvalid}
		}
		if node.Value == nil {
			return good(nil)
		}
		return good(node.Value)
	case "NodeId":
		return good(node.ID)
	case "NodeClass":
		return good(node.Class)
	case "BrowseName":
		return good(node.BrowseName)
	case "DisplayName":
		return good(node.DisplayName)
	case "Description":
		return good(node.Description)
	case "DataType":
		if node.Class != addrspace.NodeClassVariable && node.Class != addrspace.NodeClassVariableType {
			return DataValue{Status: StatusBadAttributeIDInvalid}
		}
		return good(node.DataType.NodeID())
	case "IsAbstract":
		switch node.Class {
		case addrspace.NodeClassObjectType, addrspace.NodeClassVariableType,
			addrspace.NodeClassReferenceType, addrspace.NodeClassDataType:
			return good(node.IsAbstract)
		}
		return DataValue{Status: StatusBadAttributeIDInvalid}
	default:
		return DataValue{Status: StatusBadAttributeIDInvalid}
	}
}

// ============================================================================
// Browse
// ============================================================================

func (a *RESTAdapter) handleBrowse(w http.ResponseWriter, r *http.Request) {
	var req BrowseRequest
	if !a.decodeBatch(w, r, &req, func() int { return len(req.NodesToBrowse) }, a.config.OperationLimits.MaxNodesPerBrowse) {
		return
	}
	a.metrics.RecordOperations(serviceBrowse, len(req.NodesToBrowse))

	results := make([]BrowseResult, len(req.NodesToBrowse))
	err := a.as.View(r.Context(), func(tx *addrspace.Tx) error {
		for i, bd := range req.NodesToBrowse {
			res, err := browseNode(tx, bd)
			if err != nil && !isDomainError(err) {
				return err
			}
			results[i] = res
		}
		return nil
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, StatusBadInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, BrowseResponse{Results: results})
}

func browseNode(tx *addrspace.Tx, bd BrowseDescription) (BrowseResult, error) {
	id, err := addrspace.ParseNodeID(bd.NodeID)
	if err != nil {
		return BrowseResult{Status: StatusBadNodeIDInvalid}, nil
	}

	var forward, inverse bool
	switch bd.Direction {
	case "", "forward":
		forward = true
	case "inverse":
		inverse = true
	case "both":
		forward, inverse = true, true
	default:
		return BrowseResult{Status: StatusBadInvalidArgument}, nil
	}

	var refType addrspace.NodeID
	if bd.ReferenceType != "" {
		if refType, err = addrspace.ParseNodeID(bd.ReferenceType); err != nil {
			return BrowseResult{Status: StatusBadNodeIDInvalid}, nil
		}
	}

	refs, err := tx.Browse(id)
	if err != nil {
		return BrowseResult{Status: statusFor(err)}, err
	}

	result := BrowseResult{Status: StatusGood}
	for _, ref := range refs {
		if (ref.IsForward && !forward) || (!ref.IsForward && !inverse) {
			continue
		}
		if !refType.IsNull() && ref.Type != refType {
			continue
		}

		target, err := tx.FindNode(ref.Target)
		if err != nil {
			if addrspace.IsNotFound(err) {
				logger.Debug("REST browse: dangling reference %s -> %s", id, ref.Target)
				continue
			}
			return BrowseResult{Status: statusFor(err)}, err
		}

		desc := ReferenceDescription{
			ReferenceType: ref.Type,
			IsForward:     ref.IsForward,
			NodeID:        target.ID,
			BrowseName:    target.BrowseName,
			DisplayName:   target.DisplayName,
			NodeClass:     target.Class,
		}
		if td := target.TypeDefinition(); !td.IsNull() {
			desc.TypeDefinition = &td
		}
		result.References = append(result.References, desc)
	}
	return result, nil
}

// ============================================================================
// Write
// ============================================================================

func (a *RESTAdapter) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req WriteRequest
	if !a.decodeBatch(w, r, &req, func() int { return len(req.NodesToWrite) }, a.config.OperationLimits.MaxNodesPerWrite) {
		return
	}
	a.metrics.RecordOperations(serviceWrite, len(req.NodesToWrite))

	// Each write commits on its own so one bad value does not fail the rest.
	results := make([]string, len(req.NodesToWrite))
	for i, wv := range req.NodesToWrite {
		id, err := addrspace.ParseNodeID(wv.NodeID)
		if err != nil {
			results[i] = StatusBadNodeIDInvalid
			continue
		}

		err = a.as.Update(r.Context(), func(tx *addrspace.Tx) error {
			return tx.WriteValue(id, wv.Value)
		})
		if err != nil && !isDomainError(err) {
			writeError(w, r, http.StatusInternalServerError, StatusBadInternalError, err.Error())
			return
		}
		results[i] = statusFor(err)
		if err == nil {
			logger.Debug("REST write: %s = %v", id, wv.Value.Value)
		}
	}
	writeJSON(w, http.StatusOK, WriteResponse{Results: results})
}

// ============================================================================
// TranslateBrowsePaths
// ============================================================================

func (a *RESTAdapter) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	limit := a.config.OperationLimits.MaxNodesPerTranslateBrowsePathsToNodeIDs
	if !a.decodeBatch(w, r, &req, func() int { return len(req.BrowsePaths) }, limit) {
		return
	}
	a.metrics.RecordOperations(serviceTranslate, len(req.BrowsePaths))

	results := make([]BrowsePathResult, len(req.BrowsePaths))
	err := a.as.View(r.Context(), func(tx *addrspace.Tx) error {
		for i, bp := range req.BrowsePaths {
			res, err := translatePath(tx, bp)
			if err != nil && !isDomainError(err) {
				return err
			}
			results[i] = res
		}
		return nil
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, StatusBadInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, TranslateResponse{Results: results})
}

func translatePath(tx *addrspace.Tx, bp BrowsePath) (BrowsePathResult, error) {
	id, err := addrspace.ParseNodeID(bp.StartingNode)
	if err != nil {
		return BrowsePathResult{Status: StatusBadNodeIDInvalid}, nil
	}
	if len(bp.RelativePath) == 0 {
		return BrowsePathResult{Status: StatusBadNothingToDo}, nil
	}

	if _, err := tx.FindNode(id); err != nil {
		return BrowsePathResult{Status: statusFor(err)}, err
	}
	for _, name := range bp.RelativePath {
		child, err := tx.ChildByBrowseName(id, name)
		if addrspace.IsNotFound(err) {
			return BrowsePathResult{Status: StatusBadNoMatch}, nil
		}
		if err != nil {
			return BrowsePathResult{Status: statusFor(err)}, err
		}
		id = child.ID
	}
	return BrowsePathResult{Status: StatusGood, TargetID: &id}, nil
}

// ============================================================================
// Helpers
// ============================================================================

// decodeBatch decodes a batched request body and enforces the operation
// limit. It writes the error response and returns false on failure.
func (a *RESTAdapter) decodeBatch(w http.ResponseWriter, r *http.Request, v any, count func() int, limit int) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, StatusBadDecodingError, "invalid request body: "+err.Error())
		return false
	}

	n := count()
	if n == 0 {
		writeError(w, r, http.StatusBadRequest, StatusBadNothingToDo, "request carries no operations")
		return false
	}
	if limit > 0 && n > limit {
		writeError(w, r, http.StatusBadRequest, StatusBadTooManyOperations,
			"request carries more operations than the server allows")
		return false
	}
	return true
}

func isDomainError(err error) bool {
	var e *addrspace.Error
	return errors.As(err, &e) && e.Code != addrspace.ErrIOError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("REST: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Status:    code,
		Message:   message,
		RequestID: RequestIDFromContext(r.Context()),
	})
}
