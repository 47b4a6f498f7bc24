package image

// ReunionPrompt is sent after the two photos on every generation request.
const ReunionPrompt = "You are a photo editing expert. Your task is to merge two photographs into a single, heartwarming image. " +
	"The first image is a childhood photo, and the second is a recent photo of the same person as an adult. " +
	"Create a new image where the adult from the recent photo is gently hugging the child from the childhood photo. " +
	"Ensure the interaction looks natural and emotionally resonant. Both figures should be clearly visible and well-integrated. " +
	"Replace the original backgrounds entirely with a seamless, soft, and smooth off-white studio background. " +
	"Apply natural, soft lighting to create a tender and nostalgic mood. " +
	"The final output should be a single, photorealistic image."

// DefaultModel is the image-capable Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash-image"
