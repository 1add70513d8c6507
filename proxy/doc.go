// Package proxy provides the in-process upgradeable proxy collaborator and
// its factory. A proxy holds a current implementation address, an admin who
// is the only principal allowed to operate or introspect it, a balance fed
// by forwarded value, and a log of initialization and migration calls.
//
// The factory deploys proxies with fresh addresses and can route init and
// migration payloads through a CallHandler; a handler failure rolls the
// surrounding deploy or upgrade back completely.
package proxy
