package driver

// Every persisted node carries the Component label and the run_id of the
// ingestion that produced it, so runs never overwrite each other.
const (
	SaveActorQuery = `
		MERGE (n:Component {name: $name, run_id: $run_id})
		SET n:Actor,
			n.uuid = coalesce(n.uuid, $uuid),
			n.kind = $kind,
			n.created_at = $created_at
		RETURN n.uuid AS uuid
	`

	SaveServiceQuery = `
		MERGE (n:Component {name: $name, run_id: $run_id})
		SET n:Service,
			n.uuid = coalesce(n.uuid, $uuid),
			n.db = $db,
			n.exposes = $exposes,
			n.consumes = $consumes,
			n.scaling = $scaling,
			n.criticality = $criticality,
			n.created_at = $created_at
		RETURN n.uuid AS uuid
	`

	SaveDatabaseQuery = `
		MERGE (n:Component {name: $name, run_id: $run_id})
		SET n:Database,
			n.uuid = coalesce(n.uuid, $uuid),
			n.kind = $kind,
			n.used_by = $used_by,
			n.created_at = $created_at
		RETURN n.uuid AS uuid
	`

	SaveUsesEdgeQuery = `
		MATCH (s:Service {name: $service, run_id: $run_id})
		MATCH (d:Database {name: $database, run_id: $run_id})
		MERGE (s)-[e:USES]->(d)
		SET e.created_at = $created_at
		RETURN count(e) AS count
	`

	SaveInteractionQuery = `
		MERGE (s:Component {name: $from, run_id: $run_id})
		MERGE (t:Component {name: $to, run_id: $run_id})
		MERGE (s)-[e:INTERACTS {kind: $kind, description: $description}]->(t)
		SET e.created_at = $created_at
		RETURN count(e) AS count
	`

	GetRunComponentsQuery = `
		MATCH (n:Component {run_id: $run_id})
		RETURN n.name AS name, labels(n) AS labels
		ORDER BY n.name
	`

	DeleteRunQuery = `
		MATCH (n:Component {run_id: $run_id})
		DETACH DELETE n
	`
)
