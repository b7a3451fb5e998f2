package pipeline

// segmentPrompt asks for candidate points of interest in one segment. The
// reply is parsed leniently, so the block format here must match the parser's
// markers exactly; everything else in the reply is ignored.
const segmentPrompt = `You are analyzing onboard video recorded by a ground vehicle traversing
rough terrain. Identify objects that stand out from the natural environment:
man-made or artificial objects, tools, equipment, containers, infrastructure,
objects with distinctive colors or regular geometric shapes.

Ignore camera artifacts: lens distortion, compression blocking, interference
lines, lens flares, and smudges fixed to the image regardless of vehicle
motion.

For every candidate, report timestamps in milliseconds relative to the start
of THIS video segment. Repeat this block for each candidate:

LANDMARK_OBSERVATION_START
CANDIDATE_ID: [short unique id for this observation]
OBJECT_DESCRIPTION: [description]
REASONING_FOR_CANDIDACY: [why it is a candidate and why it is not a camera artifact]
START_TIMESTAMP_MS: [first visible timestamp in ms]
END_TIMESTAMP_MS: [last visible timestamp in ms]
BEST_VISIBILITY_TIMESTAMP_MS: [clearest view timestamp in ms]
LANDMARK_OBSERVATION_END

If the segment contains no clear candidates, say so in plain text.`

// contextualPrompt asks for an identification of a single extracted frame.
const contextualPrompt = `This image shows an object flagged during a vehicle traversal. Identify it
and reply in exactly this format:

OBJECT_NAME: [name or refined category, as specific as possible]
DETAILED_DESCRIPTION: [refined visual description, adding inferred detail when logical]
CONTEXTUAL_ANALYSIS: [likely purpose and relevance of the object at this site; may span multiple lines]`
