// Command chanmirror is the CLI front end for the local imageboard mirror.
// It runs the daemon (serve) and offers one-shot commands for boards, cache
// maintenance, history, filters, and configuration.
package main
