package client

import (
	"fmt"

	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/ValentinKolb/vold/rpc/serializer"
	"github.com/ValentinKolb/vold/rpc/transport/base"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("client")
)

// invokeRequest sends one request on conn and returns the decoded response.
// Connection failures are returned as they are (so the session can fail over),
// an error reported by the node is returned as *common.ProtocolError.
func invokeRequest(conn *base.Conn, req *common.Request, codec serializer.IRPCSerializer) (*common.Response, error) {
	// Serialize the request
	reqBytes, err := codec.SerializeRequest(*req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", req.Type, err)
	}

	// Send the request and wait for the answer
	respBytes, err := conn.Exchange(reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response, its layout depends on the request type
	resp := &common.Response{}
	if err := codec.DeserializeResponse(req.Type, respBytes, resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", req.Type, err)
	}

	// Check if the node reported an error
	if err := resp.Err(); err != nil {
		return nil, err
	}

	return resp, nil
}
