// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements non-blocking TCP listeners and connections on top of
// a readiness Selector.
//
// Every socket operation is a retry loop around the raw I/O adapter: a
// would-block result parks the caller on the Selector, an interrupted call is
// retried at once and anything else is mapped onto the api error taxonomy.
// Connections expose their byte streams either through direct Read/Write or
// through inbound and outbound channels fed by pump goroutines.
package tcp
