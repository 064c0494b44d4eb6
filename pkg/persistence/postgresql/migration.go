package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create workflows table
			CREATE TABLE workflows (
				id SERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				execution_point VARCHAR(64) NOT NULL,
				status VARCHAR(20) NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'active', 'inactive')),
				is_default BOOLEAN NOT NULL DEFAULT false,
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_execution_point ON workflows(execution_point);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			-- Create validation_steps table
			CREATE TABLE validation_steps (
				id SERIAL PRIMARY KEY,
				workflow_id INTEGER NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				step_order INTEGER NOT NULL DEFAULT 0,
				left_expression TEXT NOT NULL DEFAULT '',
				operation VARCHAR(20) NOT NULL,
				right_expression TEXT NOT NULL DEFAULT '',
				if_true_action VARCHAR(32) NOT NULL,
				if_true_action_data JSONB NOT NULL DEFAULT '{}',
				if_false_action VARCHAR(32) NOT NULL,
				if_false_action_data JSONB NOT NULL DEFAULT '{}',
				failure_message TEXT NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT true
			);

			CREATE INDEX idx_validation_steps_workflow_id ON validation_steps(workflow_id, step_order);
		`,
		2: `
			-- Migration 2: initial step pointer, cleared when the step is deleted
			ALTER TABLE workflows
				ADD COLUMN initial_step INTEGER REFERENCES validation_steps(id) ON DELETE SET NULL;
		`,
	}
}
