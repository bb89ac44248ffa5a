// Package builtins provides the platform services registered when the shell
// is built.
//
// # Services
//
//   - echo: answers every request with the request bytes.
//   - clock: answers every request with the current time in RFC3339Nano and
//     pushes the current time to the runtime on a fixed interval while the UI
//     is started.
//
// # Registration
//
//	factories := builtins.Factories(builtins.Options{
//	    Echo:          true,
//	    Clock:         true,
//	    ClockInterval: time.Second,
//	})
//
// The clock service pauses its ticker in BeforeSuspend and resumes it in
// BeforeStartOrResume. Close stops the push worker and waits for it to exit.
package builtins
