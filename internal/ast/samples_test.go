package ast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleFunc = `/**
 * nk_window_get_size() descriptive comment
 */
NK_API struct nk_rect
nk_window_get_size(const struct nk_context *ctx)
{
  // internal function comment
  int i = 0;
}
`

const sampleStruct = `/**
 * nk_rect descriptive comment
 */
NK_API struct nk_rect
{
    // internal struct comment
    // which gets attached to the internal member.
    float x,y,w,h;
}
`

const sampleStructFuncs = `

/**
 * nk_rect descriptive comment
 */
NK_API struct nk_rect
{
    // internal struct comment
    // which gets attached to the internal member.
    float x,y,w,h;
}

/**
 * nk_window_get_size() descriptive comment
 */
NK_API struct nk_rect
nk_window_get_size(const struct nk_context *ctx)
{
  // internal function comment
  int i = 0;
}


`

const sampleStructDecls = `
struct nk_buffer;
struct nk_allocator;
struct nk_command_buffer;
struct nk_draw_command;
struct nk_convert_config;
struct nk_style_item;
struct nk_text_edit;
struct nk_draw_list;
struct nk_user_font;
struct nk_panel;
struct nk_context;
struct nk_draw_vertex_layout_element;
// Multi
// Line
// Comment
struct nk_style_button;
struct nk_style_toggle;
struct nk_style_selectable;
struct nk_style_slide;
// Single line comment
struct nk_style_progress;
struct nk_style_scrollbar;
struct nk_style_edit;
/**
* This struct actually has a comment
*/
struct nk_style_property;
struct nk_style_chart;
struct nk_style_combo;
struct nk_style_tab;
struct nk_style_window_header;
struct nk_style_window;
`

const sampleCommentSpaces = `
// A disconnected comment due to spacing

// This comment is associated with nk_style_chart
struct nk_style_chart;

// Additional independent comment.

struct nk_style_combo;
struct nk_style_tab;

`

const samplePrototypeDoc = `

/*  nk_init_default - Initializes a nk_context struct with a default standard library allocator.
 *  Should be used if you don't want to be bothered with memory management in nuklear.
 *  Return values:
 *      true(1) on success
 *      false(0) on failure */
NK_API int nk_init_default(struct nk_context*, const struct nk_user_font*);
`

const sampleEnum = `enum nk_keys {
    NK_KEY_NONE,
    /* shift key */
    NK_KEY_SHIFT,
    NK_KEY_CTRL, // control key
    NK_KEY_MAX
};
`

func parse(t *testing.T, text string, opts ...Option) *Tree {
	t.Helper()
	tree, err := ParseString(context.Background(), text, opts...)
	require.NoError(t, err)
	return tree
}

func mustNode(t *testing.T, tree *Tree, line int) *Node {
	t.Helper()
	n, ok := tree.Node(LineID(line))
	require.True(t, ok, "no node for line %d", line)
	return n
}
