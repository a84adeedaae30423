package conversation

// Reply texts sent to senders.
const (
	ReplyMenu = "📱 Welcome to Arafat Telecom\n\n" +
		"1️⃣ Register\n" +
		"2️⃣ Login\n" +
		"3️⃣ Talk to AI\n"

	ReplyAskEmail    = "📧 Enter your email:"
	ReplyAskPassword = "🔐 Create password:"
	ReplyAskPIN      = "🔢 Create 4-digit transaction PIN:"

	ReplyInvalidEmail    = "❌ That doesn't look like an email address. 📧 Enter your email:"
	ReplyInvalidPassword = "❌ Password must be 6 to 72 characters long. 🔐 Create password:"
	ReplyInvalidPIN      = "❌ PIN must be exactly 4 digits. 🔢 Create 4-digit transaction PIN:"

	ReplyRegistered         = "✅ Registration successful!\nType 'menu'"
	ReplyEmailTaken         = "❌ Registration failed: that email is already registered.\nType 'menu'"
	ReplyAlreadyRegistered  = "❌ Registration failed: this number is already registered.\nType 'menu'"
	ReplyRegistrationFailed = "❌ Registration failed, please try again later.\nType 'menu'"

	ReplyAskLoginEmail    = "📧 Enter your registered email:"
	ReplyAskLoginPassword = "🔐 Enter password:"
	ReplyLoggedIn         = "✅ Login successful!\n\nType 'menu'"
	ReplyInvalidLogin     = "❌ Invalid credentials\nType 'menu'"
	ReplyLoginFailed      = "❌ Login failed, please try again later.\nType 'menu'"

	ReplyAIOn          = "🤖 Arafat AI activated.\nType 'exit' to leave."
	ReplyAIOff         = "Exited AI mode.\nType 'menu'"
	ReplyAIUnavailable = "⚠️ Arafat AI is unavailable right now. Please try again later."

	ReplyHint = "Type 'menu' to begin."
	ReplyBusy = "⏳ We are still processing your previous message. Please send that again."
)
