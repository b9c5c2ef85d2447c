// Package security implements the gRPC transport for the security engine.
//
// The service is described by hand (ServiceDesc) and exchanges protobuf
// well-known types: statuses and sensors travel as structpb values, enum
// names as wrapperspb strings and frames as wrapperspb bytes. Server adapts
// the engine to that descriptor; the client side lives in service/common.
package security
