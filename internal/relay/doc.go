// Package relay carries service-initiated pushes out to the embedded content
// runtime.
//
// # Overview
//
// A Relay holds a single delivery function, installed once by the shell
// coordinator when the runtime becomes ready to receive pushes. Service
// instances call Deliver from inside their close-vs-push critical section, so
// the relay itself never decides whether a push is allowed; it only encodes
// and forwards.
//
// Payloads are raw bytes on the service side. The runtime boundary is text
// only, so Deliver encodes every payload with standard base64 (no line
// wrapping) before handing it to the delivery function.
//
// Pushes made before a delivery function is installed are dropped and
// counted. They are never queued.
//
// # Hub
//
// Hub fans deliveries out to every connected runtime stream. Each subscriber
// gets a buffered channel; Publish never blocks and drops messages for
// subscribers whose buffer is full.
//
//	hub := relay.NewHub(logger)
//	r := relay.New(logger)
//	_ = r.Install(hub.PublishPush)
//
//	ch, _ := hub.Subscribe(ctx)
//	for msg := range ch {
//	    // msg.Kind is KindPush or KindNavigate
//	}
package relay
