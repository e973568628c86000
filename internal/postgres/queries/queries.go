package queries

const (
	CreateMember = `
		INSERT INTO members (email, name, password_hash, image, reg_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id;
	`
	memberColumns    = `id, email, name, password_hash, image, reg_date`
	GetMemberByID    = `SELECT ` + memberColumns + ` FROM members WHERE id = $1;`
	GetMemberByEmail = `SELECT ` + memberColumns + ` FROM members WHERE email = $1;`
	ExistsMember     = `SELECT 1 FROM members WHERE email = $1;`
	ListMembers      = `SELECT ` + memberColumns + ` FROM members ORDER BY id OFFSET $1 LIMIT $2;`
	ListAllMembers   = `SELECT ` + memberColumns + ` FROM members ORDER BY id OFFSET $1;`
	CountMembers     = `SELECT count(*) FROM members;`
	UpdateMember     = `
		UPDATE members
		SET name = $2, image = $3
		WHERE email = $1;
	`
	DeleteMember = `DELETE FROM members WHERE email = $1;`

	CreateRoom = `
		INSERT INTO chat_rooms (id, name, reg_date)
		VALUES ($1, $2, $3);
	`
	GetRoom   = `SELECT id, name, reg_date FROM chat_rooms WHERE id = $1;`
	ListRooms = `
		SELECT id, name, reg_date
		FROM chat_rooms
		WHERE ($1::timestamptz IS NULL OR reg_date < $1
		       OR (reg_date = $1 AND id < $2))
		ORDER BY reg_date DESC, id DESC
		LIMIT $3;
	`
	DeleteRoom = `DELETE FROM chat_rooms WHERE id = $1;`

	AppendMessage = `
		INSERT INTO chat_messages (id, room_id, type, sender_id, sender, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING;
	`
	MessageHistory = `
		SELECT id::text, room_id, type, sender_id, sender, message, created_at
		FROM chat_messages
		WHERE room_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id < $3::uuid)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $4;
	`
)
