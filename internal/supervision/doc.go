// Package supervision runs the periodic health supervision of registered
// resources.
//
// Every cycle probes all resources concurrently. Each resource is probed
// while holding its shared lock, so registrations touching the same resource
// wait for the probe to finish while other resources proceed.
//
//   - A successful probe resets the failure counter and enables every
//     subscription the resource supports but does not yet serve.
//   - A failed probe marks the resource not alive and forgets the
//     subscriptions it served. Once the failures reach the dead threshold the
//     resource is deregistered, which may remove capabilities and orphan
//     their subscriptions.
//
// After all resources are processed, subscriptions whose effective status
// changed are reported to their owners through a notify.Dispatcher, and
// capabilities removed by deregistration are reported to capability watches.
//
// A second ticker expires owners that registered a keep-alive interval and
// stopped refreshing it. Their subscriptions are removed through an
// OwnerRemover.
//
// # Usage
//
//	sup := supervision.New(reg, remote.NewHTTPResourceClient(client), dispatcher,
//	    supervision.WithInterval(time.Minute),
//	    supervision.WithDeadThreshold(3),
//	    supervision.WithOwnerRemover(svc),
//	)
//	go func() { _ = sup.Start(ctx) }()
//	defer sup.Stop()
package supervision
