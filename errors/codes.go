package errors

type Code string

const (
	ErrAborted           Code = "aborted"
	ErrBadRequest        Code = "bad-request"
	ErrCommunication     Code = "communication"
	ErrProtocolViolation Code = "protocol-violation"
	ErrFatal             Code = "fatal"
	ErrNotFound          Code = "not-found"
	ErrInternal          Code = "internal"
	ErrUnexpected        Code = "unexpected"
)

type Kind string

const (
	// KindAlreadyJoined is used when a participant wants to join an arena it
	// already joined.
	KindAlreadyJoined Kind = "already-joined"
	// KindArenaClosed is used when an operation is requested for an arena whose
	// actor has already shut down.
	KindArenaClosed Kind = "arena-closed"
	// KindArenaFull is used when no team has capacity left for a joining
	// participant.
	KindArenaFull Kind = "arena-full"
	// KindBedAlreadyDestroyed is used when a bed is reported as destroyed a
	// second time.
	KindBedAlreadyDestroyed Kind = "bed-already-destroyed"
	// KindBlockProtected is used when a block is broken that was not placed by
	// a participant.
	KindBlockProtected Kind = "block-protected"
	// KindContextAborted is used when we were currently performing an operation but
	// the context got aborted.
	KindContextAborted Kind = "context-aborted"
	// KindDB is used for failed database setup.
	KindDB             Kind = "db"
	KindDecodeJSON     Kind = "decode-json"
	KindDecodeYAML     Kind = "decode-yaml"
	// KindGeneratorsRunning is used when generators are started for an arena
	// that already has them running.
	KindGeneratorsRunning Kind = "generators-running"
	// KindInvalidConfig is used for configuration that can not be used.
	KindInvalidConfig Kind = "invalid-config"
	// KindInvalidTransition is used when a state transition is requested that is
	// not possible from the current arena state.
	KindInvalidTransition Kind = "invalid-transition"
	// KindOwnBed is used when a participant destroys the bed of its own team.
	KindOwnBed Kind = "own-bed"
	// KindProvisionFailed is used when no match world could be obtained.
	KindProvisionFailed  Kind = "provision-failed"
	KindResourceNotFound Kind = "resource-not-found"
	// KindTeardownFailed is used when a match world could not be released.
	KindTeardownFailed Kind = "teardown-failed"
	// KindShouldNotHappen is used for states that are not reachable with
	// correct setup.
	KindShouldNotHappen Kind = "should-not-happen"
	// KindUnknownArena is used when an operation targets an arena that does
	// not exist.
	KindUnknownArena Kind = "unknown-arena"
	// KindUnknownParticipant is used when a participant is referenced that is
	// not part of the arena's roster.
	KindUnknownParticipant Kind = "unknown-participant"
	// KindUnknownTeam is used when a team color is referenced that does not
	// exist in the arena.
	KindUnknownTeam Kind = "unknown-team"
)
