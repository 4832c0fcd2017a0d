package rest

import (
	"time"

	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/addrspace"
)

// Status codes reported per operation and on request-level failures.
const (
	StatusGood                   = "Good"
	StatusBadNodeIDUnknown       = "BadNodeIdUnknown"
	StatusBadNodeIDInvalid       = "BadNodeIdInvalid"
	StatusBadNodeIDExists        = "BadNodeIdExists"
	StatusBadAttributeIDInvalid  = "BadAttributeIdInvalid"
	StatusBadInvalidArgument     = "BadInvalidArgument"
	StatusBadTypeMismatch        = "BadTypeMismatch"
	StatusBadNodeClassInvalid    = "BadNodeClassInvalid"
	StatusBadNotWritable         = "BadNotWritable"
	StatusBadNoMatch             = "BadNoMatch"
	StatusBadNothingToDo         = "BadNothingToDo"
	StatusBadTooManyOperations   = "BadTooManyOperations"
	StatusBadDecodingError       = "BadDecodingError"
	StatusBadResourceUnavailable = "BadResourceUnavailable"
	StatusBadTooManyRequests     = "BadTooManyRequests"
	StatusBadInternalError       = "BadInternalError"
)

// statusFor maps an address space error to an operation status code.
func statusFor(err error) string {
	switch {
	case err == nil:
		return StatusGood
	case addrspace.IsCode(err, addrspace.ErrNotFound):
		return StatusBadNodeIDUnknown
	case addrspace.IsCode(err, addrspace.ErrAlreadyExists):
		return StatusBadNodeIDExists
	case addrspace.IsCode(err, addrspace.ErrInvalidArgument):
		return StatusBadInvalidArgument
	case addrspace.IsCode(err, addrspace.ErrTypeMismatch):
		return StatusBadTypeMismatch
	case addrspace.IsCode(err, addrspace.ErrBadNodeClass):
		return StatusBadNodeClassInvalid
	case addrspace.IsCode(err, addrspace.ErrReadOnly), addrspace.IsCode(err, addrspace.ErrNotWritable):
		return StatusBadNotWritable
	default:
		return StatusBadInternalError
	}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	State               string                  `json:"state"`
	StartTime           *time.Time              `json:"start_time,omitempty"`
	CurrentTime         *time.Time              `json:"current_time,omitempty"`
	SecondsTillShutdown uint32                  `json:"seconds_till_shutdown"`
	ShutdownReason      addrspace.LocalizedText `json:"shutdown_reason"`
	BuildInfo           BuildInfoResponse       `json:"build_info"`
	Endpoint            string                  `json:"endpoint"`
}

// BuildInfoResponse carries the published build information.
type BuildInfoResponse struct {
	ProductURI       string     `json:"product_uri"`
	ManufacturerName string     `json:"manufacturer_name"`
	ProductName      string     `json:"product_name"`
	SoftwareVersion  string     `json:"software_version"`
	BuildNumber      string     `json:"build_number"`
	BuildDate        *time.Time `json:"build_date,omitempty"`
}

// ReadValueID selects one attribute of one node.
type ReadValueID struct {
	NodeID string `json:"node_id"`

	// Attribute defaults to "Value".
	Attribute string `json:"attribute,omitempty"`
}

// ReadRequest is the body of POST /read.
type ReadRequest struct {
	NodesToRead []ReadValueID `json:"nodes_to_read"`
}

// DataValue is the result of reading one attribute.
type DataValue struct {
	Status string `json:"status"`
	Value  any    `json:"value,omitempty"`
}

// ReadResponse holds one DataValue per requested attribute, in request order.
type ReadResponse struct {
	Results []DataValue `json:"results"`
}

// BrowseDescription selects the references to return for one node.
type BrowseDescription struct {
	NodeID string `json:"node_id"`

	// Direction is "forward" (default), "inverse" or "both".
	Direction string `json:"direction,omitempty"`

	// ReferenceType restricts results to one reference type when set.
	ReferenceType string `json:"reference_type,omitempty"`
}

// BrowseRequest is the body of POST /browse.
type BrowseRequest struct {
	NodesToBrowse []BrowseDescription `json:"nodes_to_browse"`
}

// ReferenceDescription describes one reference and its target.
type ReferenceDescription struct {
	ReferenceType  addrspace.NodeID        `json:"reference_type"`
	IsForward      bool                    `json:"is_forward"`
	NodeID         addrspace.NodeID        `json:"node_id"`
	BrowseName     addrspace.QualifiedName `json:"browse_name"`
	DisplayName    addrspace.LocalizedText `json:"display_name"`
	NodeClass      addrspace.NodeClass     `json:"node_class"`
	TypeDefinition *addrspace.NodeID       `json:"type_definition,omitempty"`
}

// BrowseResult lists the references of one browsed node.
type BrowseResult struct {
	Status     string                 `json:"status"`
	References []ReferenceDescription `json:"references,omitempty"`
}

// BrowseResponse holds one BrowseResult per browsed node, in request order.
type BrowseResponse struct {
	Results []BrowseResult `json:"results"`
}

// WriteValue assigns a value to one variable.
type WriteValue struct {
	NodeID string            `json:"node_id"`
	Value  addrspace.Variant `json:"value"`
}

// WriteRequest is the body of POST /write.
type WriteRequest struct {
	NodesToWrite []WriteValue `json:"nodes_to_write"`
}

// WriteResponse holds one status per write, in request order.
type WriteResponse struct {
	Results []string `json:"results"`
}

// BrowsePath is a start node and a sequence of child browse names.
type BrowsePath struct {
	StartingNode string   `json:"starting_node"`
	RelativePath []string `json:"relative_path"`
}

// TranslateRequest is the body of POST /translate.
type TranslateRequest struct {
	BrowsePaths []BrowsePath `json:"browse_paths"`
}

// BrowsePathResult is the node a browse path resolves to.
type BrowsePathResult struct {
	Status   string            `json:"status"`
	TargetID *addrspace.NodeID `json:"target_id,omitempty"`
}

// TranslateResponse holds one result per browse path, in request order.
type TranslateResponse struct {
	Results []BrowsePathResult `json:"results"`
}
