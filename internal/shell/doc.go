// Package shell coordinates the long-lived application core across UI
// surface recreation.
//
// # Host and coordinator
//
// A Host holds at most one Coordinator. The first OnHostAttach builds it
// (cold start); every later attach reuses it (warm start) and forwards the
// attach deep link to the running shell. Process returns the process-wide
// host; NewHost builds independent hosts for tests and embedders.
//
//	host := shell.Process()
//	host.Configure(func(args []string, deepLink string) shell.Options {
//	    return shell.Options{Args: args, DeepLink: deepLink, Services: factories}
//	})
//	coord, start, err := host.OnHostAttach(shell.HostRef{ID: "surface-1"}, args, link)
//
// # Lifecycle fan-out
//
// OnUiStart, OnUiStop and OnUiDestroy call BeforeStartOrResume,
// BeforeSuspend and AfterStopped on every open service instance, on the
// calling goroutine, with no coordinator lock held. A destroy whose HostRef
// is Finishing shuts the coordinator down: every instance is closed and the
// registry is released.
//
// # Deep links
//
// Until the embedded runtime reports ready through OnRuntimeReady, only the
// most recent deep link is retained. OnRuntimeReady replays it once. After
// that, deep links are delivered to the Navigator immediately.
//
// # Observers
//
// Observers receive a LifecycleEvent after each transition. They are called
// synchronously and must not call back into the coordinator.
package shell
