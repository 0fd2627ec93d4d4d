package ws

import "context"

// IHub routes serialized events to the websocket sessions of a party.
type IHub interface {
	Run(ctx context.Context)
	RegisterClient(client *UserClient)
	UnregisterClient(client *UserClient)
	SendToClient(partyId string, message []byte)
	Broadcast(message []byte)
	GetClientCount() int
	SetOnClientUnregister(callback func(client *UserClient) error)
}
