package graph

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// schemaSDL describes the feed, comment threads, profiles and live updates.
const schemaSDL = `
type User {
  id: ID!
  email: String!
  displayName: String!
  photoURL: String!
  bio: String!
  createdAt: String!
}

type Message {
  role: String!
  content: String!
}

type Post {
  id: ID!
  authorId: ID!
  authorEmail: String!
  authorName: String!
  authorPhoto: String!
  messages: [Message!]!
  model: String!
  likes: Int!
  dislikes: Int!
  score: Int!
  commentCount: Int!
  createdAt: String!
  comments(limit: Int = 20, offset: Int = 0): [Comment!]!
}

type Comment {
  id: ID!
  postId: ID!
  parentId: ID
  authorId: ID!
  authorEmail: String!
  text: String!
  createdAt: String!
}

type PostPage {
  posts: [Post!]!
  cursor: String
}

type Profile {
  user: User!
  posts: [Post!]!
  karma: Int!
  isOwnProfile: Boolean!
}

type Conversation {
  id: ID!
  title: String!
  messages: [Message!]!
  createdAt: String!
  updatedAt: String!
}

type FeedEvent {
  type: String!
  post: Post!
}

type Query {
  posts(limit: Int, cursor: String): PostPage!
  post(id: ID!): Post
  comments(postId: ID!, limit: Int = 20, offset: Int = 0): [Comment!]!
  user(id: ID!): Profile
  me: User
  conversations: [Conversation!]!
}

type Mutation {
  likePost(id: ID!): Post!
  dislikePost(id: ID!): Post!
  addComment(postId: ID!, text: String!, parentId: ID): Comment!
}

type Subscription {
  commentAdded(postId: ID!): Comment!
  feedUpdated: FeedEvent!
}
`

var parsedSchema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphql", Input: schemaSDL, BuiltIn: false})
