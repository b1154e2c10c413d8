// Package tgui renders chat replies for Telegram: HTML-escaped message text,
// scoped inline keyboards and "scope:action:payload" callback data.
package tgui
