package game

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kezlabs/taboo-live/pkg/realtime/protocol"
)

// GuessResultToolName is the function the peer calls to report a guess.
const GuessResultToolName = "taboo_guess_result"

// ModePrompt returns the session-level instructions for a mode.
func ModePrompt(mode Mode) string {
	switch mode {
	case ModeCasual:
		return "You are a friendly English conversation partner helping a learner practice " +
			"everyday speech. Keep the conversation natural and relaxed. Ask follow-up " +
			"questions, react to what the learner says, and gently rephrase when they " +
			"struggle. Speak clearly and keep your turns short so the learner talks more " +
			"than you do."
	case ModeRoleplay:
		return "You are an English conversation coach running a roleplay scenario. Pick an " +
			"everyday situation such as ordering food, a job interview, or asking for " +
			"directions, stay in character, and guide the learner through it. Keep your " +
			"turns short and prompt the learner to respond. If they get stuck, offer a " +
			"useful phrase and continue the scene."
	default:
		return "You are playing a word-guessing game to help an English learner practice " +
			"describing things. The learner describes a secret word without saying it or " +
			"any of its forbidden words, and you try to guess it. Listen carefully, make " +
			"guesses when you have a reasonable idea, and keep the energy encouraging. " +
			"When you guess, report it with the " + GuessResultToolName + " function. " +
			"Never reveal that you were told the word."
	}
}

// GuessResultTool declares the structured guess-reporting function sent
// with session.update.
func GuessResultTool() protocol.Tool {
	params := json.RawMessage(`{
		"type": "object",
		"properties": {
			"guessed_word": {"type": "string", "description": "The word you are guessing"},
			"is_correct": {"type": "boolean", "description": "Whether your guess matches the secret word"},
			"confidence": {"type": "number", "description": "Your confidence from 0 to 1"},
			"action": {"type": "string", "enum": ["correct_guess", "wrong_guess"]}
		},
		"required": ["guessed_word", "is_correct"]
	}`)
	return protocol.Tool{
		Type:        "function",
		Name:        GuessResultToolName,
		Description: "Report every guess you make at the secret word, marking whether it is correct.",
		Parameters:  params,
	}
}

// NewRoundMessage instructs the peer about a freshly assigned word.
func NewRoundMessage(word string, forbidden []string) string {
	return fmt.Sprintf(
		"NEW ROUND. The secret word is %q. The player must describe it without saying it "+
			"or any of these forbidden words: %s. You try to guess the secret word from "+
			"their description. Do not say the secret word unless you are guessing it. "+
			"Report each guess with the %s function. Acknowledge briefly that a new round "+
			"has started and invite the player to begin describing.",
		word, strings.Join(forbidden, ", "), GuessResultToolName)
}

// CorrectGuessSilence is a per-turn instruction keeping the peer quiet
// while the controller confirms a correct guess.
func CorrectGuessSilence() string {
	return "You guessed correctly. Say only a short celebration like \"Yes! I got it!\" " +
		"and then stop. Do not start a new topic; wait for the next round."
}

// NextWordMessage moves the game to a new word after a completed round.
func NextWordMessage(word string, forbidden []string) string {
	return fmt.Sprintf(
		"NEXT ROUND. Forget the previous word entirely. The new secret word is %q and "+
			"the forbidden words are: %s. Briefly tell the player a new round is starting "+
			"and ask them to describe the new word.",
		word, strings.Join(forbidden, ", "))
}

// ForbiddenWordUsedMessage pauses the game after the player spoke a
// forbidden word.
func ForbiddenWordUsedMessage(word string) string {
	return fmt.Sprintf(
		"The player just said the forbidden word %q. The round is paused. Tell them "+
			"kindly that %q was forbidden, and ask whether they want to keep trying this "+
			"word or move to the next one. Do not reveal the secret word.",
		word, word)
}

// ContinueAfterForbiddenMessage resumes the same word after a pause.
func ContinueAfterForbiddenMessage(word string) string {
	return fmt.Sprintf(
		"The player wants to keep trying the same word. Resume the round. Remind them "+
			"not to use %q, then let them continue describing.",
		word)
}

// UnlockMessage tells the peer it spoke a forbidden word itself, which
// frees the player to use it.
func UnlockMessage(word string) string {
	return fmt.Sprintf(
		"You just said %q, which was one of the forbidden words. It is now unlocked: "+
			"the player may say it freely for the rest of this round.",
		word)
}

// UnlockResponseInstruction is the spoken acknowledgement of an unlock.
func UnlockResponseInstruction(word string) string {
	return fmt.Sprintf(
		"Briefly acknowledge that you said %q yourself, so the player can now use it. "+
			"Something like: \"Ah, I said %s, so now you can use it too. Smart!\" Then "+
			"continue guessing.",
		word, word)
}

// FeedbackRequestMessage asks the peer to switch into coach mode and
// review the player's descriptions for the round.
func FeedbackRequestMessage(word, description string, forbidden []string) string {
	return fmt.Sprintf(
		"FEEDBACK MODE. The game is paused; you are now a language coach. The player was "+
			"describing %q while avoiding: %s. Here is everything they said: %q. Give "+
			"specific, encouraging feedback on their English: grammar, word choice, and "+
			"sentence structure. Point out one or two things they did well and one or two "+
			"concrete improvements with example phrasings. Keep it under a minute of speech.",
		word, strings.Join(forbidden, ", "), description)
}

// FeedbackSessionEndMessage returns the peer to game mode.
func FeedbackSessionEndMessage() string {
	return "Feedback is finished. Return to the game. Briefly tell the player you are " +
		"switching back and are ready for the next word."
}

// WordCompletionMessage congratulates a finished word before moving on.
func WordCompletionMessage(word string) string {
	return fmt.Sprintf(
		"The round for %q is complete. Congratulate the player briefly on getting "+
			"through it.",
		word)
}

// GreetingInstruction opens the session once the channel is configured.
func GreetingInstruction(mode Mode) string {
	switch mode {
	case ModeCasual:
		return "Greet the learner warmly in one or two sentences and ask an easy opening " +
			"question to start the conversation."
	case ModeRoleplay:
		return "Greet the learner in one or two sentences, introduce the roleplay scenario " +
			"you picked, and set the scene."
	default:
		return "Greet the player in one or two sentences, explain the game in the simplest " +
			"terms, and tell them you will give them their first word."
	}
}
