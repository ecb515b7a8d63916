// Package delivery pushes finished previews to the remote channel.
//
// Notifier owns the retry policy: a fixed number of attempts separated by a
// fixed delay, every error treated as retryable. Sender is the one-method
// channel client; TelegramSender implements it on the Telegram Bot API.
package delivery
