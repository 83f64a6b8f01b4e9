// Package game implements the session controller for a realtime
// word-guessing voice game. The human player describes a secret word
// without saying it or any of its forbidden words; the AI peer listens
// and guesses.
//
// Architecture:
//
//	                 +-----------------------------+
//	 peer events --> |           Session           | --> observer Events
//	 (protocol)      |                             |
//	                 |  TranscriptLog  (ordering)  |
//	                 |  Tracker    (forbidden set) |
//	                 |  Detector   (guess check)   |
//	                 |  PendingBuffer (deferred    |
//	                 |               game logic)   |
//	                 |  ResponseScheduler (cancel/ |
//	                 |            create pacing)   |
//	                 +--------------+--------------+
//	                                |
//	                                v
//	                         Sender (channel)
//
// The Session consumes decoded peer events from a single goroutine and
// accepts player operations (start round, skip, continue, request
// feedback) from another. All outbound traffic funnels through the
// Sender, with response requests paced by the ResponseScheduler so a
// new response never races an in-flight one.
//
// Round lifecycle: Idle -> RoundActive, then on a correct guess
// RoundActive -> PausedCorrect, or on a player violation RoundActive
// -> PausedForbidden. From either pause the player continues with the
// same word, deals the next word, or enters Feedback mode, where the
// peer becomes a language coach and game detection is suspended.
package game
