// Package clearing implements the client side of the clearing-service
// protocol.
//
// The service speaks JSON frames over a single websocket: requests carry a
// UUID that the matching response echoes, and the service pushes unsolicited
// events (auth results, balance updates, connection loss) on the same socket.
// Link is the seam the SDK programs against; WSLink is the production
// implementation. Push events fan out to every subscriber; a deliberate Close
// emits no linkClosed event, so only genuine connection loss reaches the
// reconnect logic.
package clearing
